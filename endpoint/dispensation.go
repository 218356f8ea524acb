package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/engine"
	"github.com/wellpath/medtrack/util"
)

const upcomingCacheKey = "dashboard:upcoming_dispensations"
const upcomingCacheTTL = time.Minute

type recordDispensationRequest struct {
	PatientID    uint   `json:"patient_id" example:"1"`
	MedicationID uint   `json:"medication_id" example:"1"`
	ProgramID    uint   `json:"program_id" example:"1"`
	Frequency    string `json:"frequency" example:"Daily"`
	DispensedAt  string `json:"dispensed_at,omitempty" example:"2024-01-08T10:30:00Z"`
	Notes        string `json:"notes,omitempty" example:"observed dose"`
}

// RecordDispensation godoc
// @Summary      Record a medication dispensation
// @Description  Persists the dose against its canonical time bucket. For deduplicated frequencies a second dose in the same bucket is reported as already dispensed, not as an error.
// @Tags         Dispensation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        dispensation body recordDispensationRequest true "Dispensation details"
// @Success      200 {object} util.APIResponse{data=object} "Dispensation recorded or duplicate signalled"
// @Failure      400 {object} util.APIResponse "Invalid payload or unsupported frequency"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /dispensation [post]
func RecordDispensation(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	e, ok := ensureEngine(c)
	if !ok {
		return
	}

	var req recordDispensationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid request payload", Err: err})
		return
	}
	if req.PatientID == 0 || req.MedicationID == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "patient_id and medication_id are required",
			Err: fmt.Errorf("missing identifiers"),
		})
		return
	}

	var dispensedAt time.Time
	if req.DispensedAt != "" {
		var err error
		dispensedAt, err = time.Parse(time.RFC3339, req.DispensedAt)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "dispensed_at must be RFC3339", Err: err})
			return
		}
	}

	row, duplicate, err := e.RecordDispensation(c.Request.Context(), engine.DispensationInput{
		PatientID:    req.PatientID,
		MedicationID: req.MedicationID,
		ProgramID:    req.ProgramID,
		Frequency:    req.Frequency,
		DispensedAt:  dispensedAt,
		Notes:        req.Notes,
	})
	if err != nil {
		if errors.Is(err, engine.ErrUnsupportedFrequency) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("Frequency %q is not supported", req.Frequency),
				Err: err,
			})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record dispensation", Err: err})
		return
	}

	if duplicate {
		// Expected outcome, not an error: the dose for this period is
		// already on record.
		util.LogEngineEvent(util.EngineEvent{
			EventType: util.EventDuplicateDispensation,
			PatientID: req.PatientID,
			IP:        c.ClientIP(),
			Message: fmt.Sprintf("duplicate dispensation for patient %d medication %d (%s)",
				req.PatientID, req.MedicationID, req.Frequency),
		})
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "Medication already dispensed for this period",
			Data: map[string]interface{}{"duplicate": true},
		})
		return
	}

	markStaleEnrollments(c, db, req.PatientID, req.ProgramID, row.BucketStartAt)
	util.CacheInvalidate(c.Request.Context(), upcomingCacheKey)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Dispensation recorded",
		Data: map[string]interface{}{
			"duplicate":    false,
			"dispensation": row,
		},
	})
}

// ListUpcomingDispensations godoc
// @Summary      List upcoming and overdue dispensations
// @Description  Classify results fanned out across all active patient/medication pairs, cached briefly in Redis
// @Tags         Dispensation
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]engine.UpcomingDispensation} "Upcoming dispensations"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /dispensation/upcoming [get]
func ListUpcomingDispensations(c *gin.Context) {
	e, ok := ensureEngine(c)
	if !ok {
		return
	}

	var rows []engine.UpcomingDispensation
	if util.CacheGetJSON(c.Request.Context(), upcomingCacheKey, &rows) {
		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Upcoming dispensations retrieved", Data: rows})
		return
	}

	rows, err := e.UpcomingDispensations(c.Request.Context())
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to classify dispensations", Err: err})
		return
	}
	util.CacheSetJSON(c.Request.Context(), upcomingCacheKey, rows, upcomingCacheTTL)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Upcoming dispensations retrieved", Data: rows})
}
