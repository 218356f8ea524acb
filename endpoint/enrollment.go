package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/engine"
	"github.com/wellpath/medtrack/middleware"
	"github.com/wellpath/medtrack/model"
	"github.com/wellpath/medtrack/util"
	"gorm.io/gorm"
)

type createEnrollmentRequest struct {
	PatientID      uint   `json:"patient_id" example:"1"`
	ProgramID      uint   `json:"program_id" example:"1"`
	EnrollmentDate string `json:"enrollment_date" example:"2024-01-01"`
}

// CreateEnrollment godoc
// @Summary      Enroll a patient in a program
// @Description  Creates an enrollment and computes its expected completion date from the program's current duration
// @Tags         Enrollment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        enrollment body createEnrollmentRequest true "Enrollment details"
// @Success      200 {object} util.APIResponse{data=model.PatientEnrollment} "Enrollment created"
// @Failure      400 {object} util.APIResponse "Invalid payload"
// @Failure      404 {object} util.APIResponse "Program not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /enrollment [post]
func CreateEnrollment(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}

	var req createEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid request payload", Err: err})
		return
	}
	if req.PatientID == 0 || req.ProgramID == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "patient_id and program_id are required",
			Err: fmt.Errorf("missing identifiers"),
		})
		return
	}

	enrollmentDate, err := parseDate(req.EnrollmentDate)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "enrollment_date must be YYYY-MM-DD", Err: err})
		return
	}

	var program model.Program
	if err := db.First(&program, req.ProgramID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Program not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load program", Err: err})
		return
	}

	// The completion date is fixed now, from the program's duration at
	// enrollment time. Later duration changes only reach this row through
	// the explicit recompute-horizon operation.
	completedDate, err := engine.Horizon(enrollmentDate, program.DurationInDays)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Program %d has an invalid duration", program.ID),
			Err: err,
		})
		return
	}

	enrollment := model.PatientEnrollment{
		PatientID:      req.PatientID,
		ProgramID:      req.ProgramID,
		EnrollmentDate: enrollmentDate,
		CompletedDate:  &completedDate,
		Status:         model.EnrollmentStatusActive,
	}
	if err := db.Create(&enrollment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create enrollment", Err: err})
		return
	}

	if sched := middleware.GetScheduler(c); sched != nil {
		sched.MarkStale(enrollment.ID)
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Enrollment created", Data: enrollment})
}

// RecomputeEnrollmentHorizon godoc
// @Summary      Recompute an enrollment's completion date
// @Description  Recomputes completedDate from the program's current duration. Never happens implicitly; this is the administrator's explicit propagation step after changing a program duration.
// @Tags         Enrollment
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Enrollment ID"
// @Success      200 {object} util.APIResponse "Horizon recomputed"
// @Failure      404 {object} util.APIResponse "Enrollment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /enrollment/{id}/recompute-horizon [post]
func RecomputeEnrollmentHorizon(c *gin.Context) {
	e, ok := ensureEngine(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid enrollment id", Err: err})
		return
	}

	completed, err := e.RecomputeHorizon(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, engine.ErrEnrollmentNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Enrollment not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to recompute horizon", Err: err})
		return
	}

	if sched := middleware.GetScheduler(c); sched != nil {
		sched.MarkStale(uint(id))
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Horizon recomputed",
		Data: map[string]interface{}{"enrollment_id": id, "completed_date": completed},
	})
}

// GetEnrollmentProgress godoc
// @Summary      Get materialized progress for an enrollment
// @Description  Returns the denormalized counters as last persisted by the engine; nothing is recomputed at read time
// @Tags         Enrollment
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Enrollment ID"
// @Success      200 {object} util.APIResponse{data=model.EnrollmentProgressResponse} "Progress retrieved"
// @Failure      404 {object} util.APIResponse "Enrollment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /enrollment/{id}/progress [get]
func GetEnrollmentProgress(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid enrollment id", Err: err})
		return
	}

	var enrollment model.PatientEnrollment
	if err := db.First(&enrollment, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Enrollment not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load enrollment", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Enrollment progress retrieved",
		Data: model.EnrollmentProgressResponse{
			EnrollmentID:      enrollment.ID,
			PatientID:         enrollment.PatientID,
			ProgramID:         enrollment.ProgramID,
			EnrollmentDate:    enrollment.EnrollmentDate,
			CompletedDate:     enrollment.CompletedDate,
			Status:            enrollment.Status,
			SessionsExpected:  enrollment.SessionsExpected,
			SessionsCompleted: enrollment.SessionsCompleted,
			SessionsMissed:    enrollment.SessionsMissed,
			AttendanceRate:    enrollment.AttendanceRate,
			AdherenceRate:     enrollment.AdherenceRate,
		},
	})
}
