package models

import (
	"log"

	"bitbucket.org/mmdatafocus/battles_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Depot{},
		&Company{},
		&Platoon{},
		&Participant{},
		&DailyRecord{},
		&ScoringFormula{},
		&WeekStatus{},
		&History{},
	)
	if err != nil {
		log.Printf("auto migration failed: %v", err)
		return
	}
	log.Println("auto migration done")
}
