package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/engine"
	"github.com/wellpath/medtrack/middleware"
	"github.com/wellpath/medtrack/model"
	"github.com/wellpath/medtrack/util"
	"gorm.io/gorm"
)

// helper: ensure DB is available in context or respond with server error
func ensureDB(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return nil, false
	}
	return db, true
}

// helper: ensure the progress engine is available in context
func ensureEngine(c *gin.Context) (*engine.Engine, bool) {
	e := middleware.GetEngine(c)
	if e == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Progress engine not available",
			Err: fmt.Errorf("engine is nil"),
		})
		return nil, false
	}
	return e, true
}

// helper: parse a date in YYYY-MM-DD form
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// markStaleEnrollments queues a recompute for every enrollment of the
// patient in the program whose window covers the given date. Used by
// mutations that arrive without an explicit enrollment id.
func markStaleEnrollments(c *gin.Context, db *gorm.DB, patientID, programID uint, date time.Time) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		return
	}

	var ids []uint
	err := db.Model(&model.PatientEnrollment{}).
		Where("patient_id = ? AND program_id = ?", patientID, programID).
		Where("enrollment_date <= ?", date).
		Where("completed_date IS NULL OR completed_date >= ?", date).
		Pluck("id", &ids).Error
	if err != nil {
		return
	}
	for _, id := range ids {
		sched.MarkStale(id)
	}
}
