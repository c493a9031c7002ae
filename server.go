package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"

	"bitbucket.org/mmdatafocus/battles_backend/config"
	"bitbucket.org/mmdatafocus/battles_backend/middlewares"
	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/models/reports"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

const defaultPort = "8080"

var tracer = otel.Tracer("battles-backend")

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-Id", "X-User-Name", "X-User-Role", "X-Correlation-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middlewares.RequestContextMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/battle-report", getBattleReportHandler)
		api.GET("/compare-report", getCompareReportHandler)
		api.GET("/week-summary", getWeekSummaryHandler)

		api.GET("/daily-records", getDailyRecordsHandler)
		api.GET("/daily-records/:id", getDailyRecordHandler)
		api.POST("/daily-records", createDailyRecordHandler)
		api.PUT("/daily-records/:id", updateDailyRecordHandler)
		api.POST("/daily-records/:id/void", voidDailyRecordHandler(true))
		api.POST("/daily-records/:id/unvoid", voidDailyRecordHandler(false))
		api.POST("/daily-records/:id/approve", approveDailyRecordHandler(true))
		api.POST("/daily-records/:id/unapprove", approveDailyRecordHandler(false))

		api.POST("/import/:source", importDailyRecordsHandler)

		api.GET("/formulas", getScoringFormulasHandler)
		api.GET("/formulas/:id", getScoringFormulaHandler)
		api.POST("/formulas", createScoringFormulaHandler)
		api.PUT("/formulas/:id", updateScoringFormulaHandler)
		api.POST("/formulas/:id/publish", publishScoringFormulaHandler)

		api.GET("/weeks", getWeekStatusesHandler)
		api.GET("/weeks/:weekKey", getWeekStatusHandler)
		api.POST("/weeks/:weekKey/finalize", weekActionHandler(models.FinalizeWeek))
		api.POST("/weeks/:weekKey/reopen", weekActionHandler(models.ReopenWeek))

		api.GET("/histories", getHistoriesHandler)
		api.GET("/histories/:id", getHistoryHandler)

		registerLookupRoutes(api)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Connect after the server is listening (Cloud Run needs the port fast).
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func parseDateParam(c *gin.Context, name string) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, errors.New(name + " is required")
	}
	return time.Parse("2006-01-02", v)
}

func getBattleReportHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "getBattleReport")
	defer span.End()

	fromDate, err := parseDateParam(c, "from")
	if err != nil {
		abortWithError(c, err)
		return
	}
	toDate, err := parseDateParam(c, "to")
	if err != nil {
		abortWithError(c, err)
		return
	}
	roleFilter := utils.NilIfEmpty(c.Query("role"))

	response, err := reports.GetBattleReport(ctx, c.Query("mode"), roleFilter, fromDate, toDate)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func getCompareReportHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "getCompareReport")
	defer span.End()

	fromDate, err := parseDateParam(c, "from")
	if err != nil {
		abortWithError(c, err)
		return
	}
	toDate, err := parseDateParam(c, "to")
	if err != nil {
		abortWithError(c, err)
		return
	}
	var participantId *int
	if v := c.Query("participant_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			abortWithError(c, errors.New("invalid participant_id"))
			return
		}
		participantId = &id
	}

	rows, err := reports.GetCompareReport(ctx, fromDate, toDate, participantId)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func getWeekSummaryHandler(c *gin.Context) {
	weekKey := c.Query("week")
	if weekKey == "" {
		abortWithError(c, errors.New("week is required"))
		return
	}
	source := utils.NilIfEmpty(c.Query("source"))
	rows, err := reports.GetWeekSummaryReport(c.Request.Context(), weekKey, source)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func getDailyRecordsHandler(c *gin.Context) {
	fromDate, err := parseDateParam(c, "from")
	if err != nil {
		abortWithError(c, err)
		return
	}
	toDate, err := parseDateParam(c, "to")
	if err != nil {
		abortWithError(c, err)
		return
	}
	var participantId *int
	if v := c.Query("participant_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			abortWithError(c, errors.New("invalid participant_id"))
			return
		}
		participantId = &id
	}
	source := utils.NilIfEmpty(c.Query("source"))

	records, err := models.GetDailyRecords(c.Request.Context(), fromDate, toDate, participantId, source)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func getDailyRecordHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	record, err := models.GetDailyRecord(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func createDailyRecordHandler(c *gin.Context) {
	var input models.NewDailyRecord
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	record, err := models.CreateDailyRecord(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func updateDailyRecordHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, errors.New("invalid id"))
		return
	}
	var body struct {
		models.EditDailyRecord
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, err)
		return
	}
	record, err := models.UpdateDailyRecord(c.Request.Context(), id, &body.EditDailyRecord, body.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func voidDailyRecordHandler(voided bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			abortWithError(c, errors.New("invalid id"))
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			abortWithError(c, err)
			return
		}
		var record *models.DailyRecord
		if voided {
			record, err = models.VoidDailyRecord(c.Request.Context(), id, body.Reason)
		} else {
			record, err = models.UnvoidDailyRecord(c.Request.Context(), id, body.Reason)
		}
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func approveDailyRecordHandler(approved bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			abortWithError(c, errors.New("invalid id"))
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			abortWithError(c, err)
			return
		}
		record, err := models.ApproveDailyRecord(c.Request.Context(), id, approved, body.Reason)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func importDailyRecordsHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, errors.New("file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer file.Close()

	workbook, err := excelize.OpenReader(file)
	if err != nil {
		abortWithError(c, errors.New("invalid workbook: "+err.Error()))
		return
	}
	defer workbook.Close()

	result, err := models.ImportDailyRecords(c.Request.Context(), workbook, c.Param("source"), c.PostForm("reason"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func getScoringFormulasHandler(c *gin.Context) {
	battleType := utils.NilIfEmpty(c.Query("battle_type"))
	status := utils.NilIfEmpty(c.Query("status"))
	formulas, err := models.GetScoringFormulas(c.Request.Context(), battleType, status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"formulas": formulas})
}

func getScoringFormulaHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	formula, err := models.GetScoringFormula(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, formula)
}

func createScoringFormulaHandler(c *gin.Context) {
	var body struct {
		models.NewScoringFormula
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, err)
		return
	}
	formula, err := models.CreateScoringFormula(c.Request.Context(), &body.NewScoringFormula, body.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, formula)
}

func updateScoringFormulaHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, errors.New("invalid id"))
		return
	}
	var body struct {
		models.NewScoringFormula
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, err)
		return
	}
	formula, err := models.UpdateScoringFormula(c.Request.Context(), id, &body.NewScoringFormula, body.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, formula)
}

func publishScoringFormulaHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, errors.New("invalid id"))
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, err)
		return
	}
	formula, err := models.PublishScoringFormula(c.Request.Context(), id, body.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, formula)
}

func getWeekStatusesHandler(c *gin.Context) {
	weeks, err := models.GetWeekStatuses(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": weeks})
}

func getWeekStatusHandler(c *gin.Context) {
	status, err := models.GetWeekStatus(c.Request.Context(), c.Param("weekKey"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func weekActionHandler(action func(context.Context, string, string) (*models.WeekStatus, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			abortWithError(c, err)
			return
		}
		status, err := action(c.Request.Context(), c.Param("weekKey"), body.Reason)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func getHistoryHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	history, err := models.GetHistory(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func getHistoriesHandler(c *gin.Context) {
	entityType := utils.NilIfEmpty(c.Query("entity_type"))
	entityId := utils.NilIfEmpty(c.Query("entity_id"))
	actionType := utils.NilIfEmpty(c.Query("action_type"))
	var userId *int
	if v := c.Query("user_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			userId = &id
		}
	}
	histories, err := models.GetHistories(c.Request.Context(), entityType, entityId, userId, actionType)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"histories": histories})
}
