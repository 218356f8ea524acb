package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/middleware"
	"github.com/wellpath/medtrack/model"
	"github.com/wellpath/medtrack/util"
	"gorm.io/gorm"
)

type markAttendanceRequest struct {
	PatientID      uint   `json:"patient_id" example:"1"`
	ProgramID      uint   `json:"program_id" example:"1"`
	EnrollmentID   *uint  `json:"enrollment_id,omitempty" example:"1"`
	AttendanceDate string `json:"attendance_date" example:"2024-01-08"`
	Status         string `json:"status" example:"Present"`
	CheckInTime    string `json:"check_in_time,omitempty" example:"2024-01-08T09:05:00Z"`
	MarkedBy       string `json:"marked_by,omitempty" example:"nurse.jane"`
}

type updateAttendanceRequest struct {
	Status      string `json:"status,omitempty" example:"Excused"`
	CheckInTime string `json:"check_in_time,omitempty" example:"2024-01-08T09:05:00Z"`
	MarkedBy    string `json:"marked_by,omitempty" example:"nurse.jane"`
}

// MarkAttendance godoc
// @Summary      Mark attendance for a session occurrence
// @Description  Records one attendance row per patient per scheduled session and queues a progress recompute
// @Tags         Attendance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        attendance body markAttendanceRequest true "Attendance details"
// @Success      200 {object} util.APIResponse{data=model.Attendance} "Attendance recorded"
// @Failure      400 {object} util.APIResponse "Invalid payload"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /attendance [post]
func MarkAttendance(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}

	var req markAttendanceRequest
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
	if !model.ValidAttendanceStatus(req.Status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "status must be one of Present, Absent, Late, Excused, Canceled",
			Err: fmt.Errorf("unknown attendance status %q", req.Status),
		})
		return
	}

	attendanceDate, err := parseDate(req.AttendanceDate)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "attendance_date must be YYYY-MM-DD", Err: err})
		return
	}

	row := model.Attendance{
		PatientID:      req.PatientID,
		ProgramID:      req.ProgramID,
		EnrollmentID:   req.EnrollmentID,
		AttendanceDate: attendanceDate,
		Status:         req.Status,
		MarkedBy:       req.MarkedBy,
	}
	if req.CheckInTime != "" {
		checkIn, err := time.Parse(time.RFC3339, req.CheckInTime)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "check_in_time must be RFC3339", Err: err})
			return
		}
		row.CheckInTime = &checkIn
	}

	if err := db.Create(&row).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record attendance", Err: err})
		return
	}

	queueAttendanceRecompute(c, db, &row)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Attendance recorded", Data: row})
}

// UpdateAttendance godoc
// @Summary      Correct an attendance record
// @Description  Updates status or check-in details and queues a progress recompute
// @Tags         Attendance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Attendance ID"
// @Param        attendance body updateAttendanceRequest true "Fields to update"
// @Success      200 {object} util.APIResponse{data=model.Attendance} "Attendance updated"
// @Failure      400 {object} util.APIResponse "Invalid payload"
// @Failure      404 {object} util.APIResponse "Attendance not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /attendance/{id} [patch]
func UpdateAttendance(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid attendance id", Err: err})
		return
	}

	var req updateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid request payload", Err: err})
		return
	}

	var row model.Attendance
	if err := db.First(&row, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Attendance not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load attendance", Err: err})
		return
	}

	updates := map[string]interface{}{}
	if req.Status != "" {
		if !model.ValidAttendanceStatus(req.Status) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "status must be one of Present, Absent, Late, Excused, Canceled",
				Err: fmt.Errorf("unknown attendance status %q", req.Status),
			})
			return
		}
		updates["status"] = req.Status
	}
	if req.CheckInTime != "" {
		checkIn, err := time.Parse(time.RFC3339, req.CheckInTime)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "check_in_time must be RFC3339", Err: err})
			return
		}
		updates["check_in_time"] = checkIn
	}
	if req.MarkedBy != "" {
		updates["marked_by"] = req.MarkedBy
	}
	if len(updates) == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "No updatable fields provided",
			Err: fmt.Errorf("empty update"),
		})
		return
	}

	if err := db.Model(&row).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update attendance", Err: err})
		return
	}

	queueAttendanceRecompute(c, db, &row)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Attendance updated", Data: row})
}

// DeleteAttendance godoc
// @Summary      Remove an attendance record
// @Description  Soft-deletes the row and queues a progress recompute
// @Tags         Attendance
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Attendance ID"
// @Success      200 {object} util.APIResponse "Attendance deleted"
// @Failure      404 {object} util.APIResponse "Attendance not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /attendance/{id} [delete]
func DeleteAttendance(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid attendance id", Err: err})
		return
	}

	var row model.Attendance
	if err := db.First(&row, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Attendance not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load attendance", Err: err})
		return
	}

	if err := db.Delete(&row).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete attendance", Err: err})
		return
	}

	queueAttendanceRecompute(c, db, &row)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Attendance deleted", Data: map[string]interface{}{"id": id}})
}

// queueAttendanceRecompute marks the affected enrollment stale, falling back
// to a patient+program window match for rows without an enrollment link.
func queueAttendanceRecompute(c *gin.Context, db *gorm.DB, row *model.Attendance) {
	if row.EnrollmentID != nil {
		if sched := middleware.GetScheduler(c); sched != nil {
			sched.MarkStale(*row.EnrollmentID)
		}
		return
	}
	markStaleEnrollments(c, db, row.PatientID, row.ProgramID, row.AttendanceDate)
}
