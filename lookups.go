package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/battles_backend/models"
	"bitbucket.org/mmdatafocus/battles_backend/utils"
)

func registerLookupRoutes(api *gin.RouterGroup) {
	api.GET("/depots", getDepotsHandler)
	api.GET("/depots/:id", getDepotHandler)
	api.POST("/depots", createDepotHandler)
	api.PUT("/depots/:id", updateDepotHandler)
	api.DELETE("/depots/:id", deleteDepotHandler)

	api.GET("/companies", getCompaniesHandler)
	api.GET("/companies/:id", getCompanyHandler)
	api.POST("/companies", createCompanyHandler)
	api.PUT("/companies/:id", updateCompanyHandler)
	api.DELETE("/companies/:id", deleteCompanyHandler)

	api.GET("/platoons", getPlatoonsHandler)
	api.GET("/platoons/:id", getPlatoonHandler)
	api.POST("/platoons", createPlatoonHandler)
	api.PUT("/platoons/:id", updatePlatoonHandler)
	api.DELETE("/platoons/:id", deletePlatoonHandler)

	api.GET("/participants", getParticipantsHandler)
	api.GET("/participants/:id", getParticipantHandler)
	api.POST("/participants", createParticipantHandler)
	api.PUT("/participants/:id", updateParticipantHandler)
	api.DELETE("/participants/:id", deleteParticipantHandler)
}

func pathId(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func getDepotsHandler(c *gin.Context) {
	name := utils.NilIfEmpty(c.Query("name"))
	depots, err := models.GetDepots(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"depots": depots})
}

func getDepotHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	depot, err := models.GetDepot(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, depot)
}

func createDepotHandler(c *gin.Context) {
	var input models.NewDepot
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	depot, err := models.CreateDepot(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, depot)
}

func updateDepotHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var input models.NewDepot
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	depot, err := models.UpdateDepot(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, depot)
}

func deleteDepotHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	depot, err := models.DeleteDepot(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, depot)
}

func getCompaniesHandler(c *gin.Context) {
	companies, err := models.GetCompanies(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func getCompanyHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	company, err := models.GetCompany(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func createCompanyHandler(c *gin.Context) {
	var input models.NewCompany
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	company, err := models.CreateCompany(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func updateCompanyHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var input models.NewCompany
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	company, err := models.UpdateCompany(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func deleteCompanyHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	company, err := models.DeleteCompany(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func getPlatoonsHandler(c *gin.Context) {
	platoons, err := models.GetPlatoons(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"platoons": platoons})
}

func getPlatoonHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	platoon, err := models.GetPlatoon(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, platoon)
}

func createPlatoonHandler(c *gin.Context) {
	var input models.NewPlatoon
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	platoon, err := models.CreatePlatoon(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, platoon)
}

func updatePlatoonHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var input models.NewPlatoon
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	platoon, err := models.UpdatePlatoon(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, platoon)
}

func deletePlatoonHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	platoon, err := models.DeletePlatoon(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, platoon)
}

func getParticipantsHandler(c *gin.Context) {
	name := utils.NilIfEmpty(c.Query("name"))
	role := utils.NilIfEmpty(c.Query("role"))
	participants, err := models.GetParticipants(c.Request.Context(), name, role)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func getParticipantHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	participant, err := models.GetParticipant(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func createParticipantHandler(c *gin.Context) {
	var input models.NewParticipant
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	participant, err := models.CreateParticipant(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func updateParticipantHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var input models.NewParticipant
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, err)
		return
	}
	participant, err := models.UpdateParticipant(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

func deleteParticipantHandler(c *gin.Context) {
	id, err := pathId(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	participant, err := models.DeleteParticipant(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}
