package endpoint

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wellpath/medtrack/model"
)

func TestProgramDurationSummaryAggregatesMaterializedCounters(t *testing.T) {
	env := newTestEnv(t, "dash_summary")
	program := env.seedProgram(t, "Weekly", 90)
	enrolled := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	completed := enrolled.AddDate(0, 0, 90)

	first := env.seedEnrollment(t, 1, program.ID, enrolled, &completed)
	second := env.seedEnrollment(t, 2, program.ID, enrolled, &completed)
	assert.NoError(t, env.db.Model(&model.PatientEnrollment{}).
		Where("id = ?", first.ID).
		Updates(map[string]interface{}{"attendance_rate": 80, "adherence_rate": 60, "sessions_missed": 1}).Error)
	assert.NoError(t, env.db.Model(&model.PatientEnrollment{}).
		Where("id = ?", second.ID).
		Updates(map[string]interface{}{"attendance_rate": 40, "adherence_rate": 20, "sessions_missed": 3, "status": model.EnrollmentStatusCompleted}).Error)

	w, response := env.request(t, http.MethodGet, "/dashboard/program-duration", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Program duration summary retrieved", response["msg"])

	rows, ok := response["data"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, rows, 1)

	row := rows[0].(map[string]interface{})
	assert.Equal(t, float64(program.ID), row["program_id"])
	assert.Equal(t, "Test Program", row["program_name"])
	assert.Equal(t, float64(90), row["duration_in_days"])
	assert.Equal(t, float64(2), row["total_enrollments"])
	assert.Equal(t, float64(1), row["active_enrollments"])
	assert.Equal(t, float64(60), row["avg_attendance_rate"])
	assert.Equal(t, float64(40), row["avg_adherence_rate"])
	assert.Equal(t, float64(2), row["avg_sessions_missed"])
}

func TestProgramDurationSummaryEmpty(t *testing.T) {
	env := newTestEnv(t, "dash_empty")

	w, response := env.request(t, http.MethodGet, "/dashboard/program-duration", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	rows, ok := response["data"].([]interface{})
	assert.True(t, ok)
	assert.Empty(t, rows)
}
