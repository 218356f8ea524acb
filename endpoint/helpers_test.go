package endpoint

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/engine"
	"github.com/wellpath/medtrack/middleware"
	"github.com/wellpath/medtrack/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testNow is the pinned clock for endpoint tests.
var testNow = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	eng    *engine.Engine
	sched  *engine.Scheduler
}

// newTestEnv builds a router wired the same way main does, minus auth and
// rate limiting, on an in-memory database. The scheduler is constructed but
// never started, so MarkStale calls are observable through State.
func newTestEnv(t *testing.T, name string) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_endpoint_%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&model.Program{},
		&model.Patient{},
		&model.Medication{},
		&model.PatientEnrollment{},
		&model.Attendance{},
		&model.Dispensation{},
		&model.EventLog{},
	)
	if err != nil {
		t.Fatalf("failed to auto-migrate models: %v", err)
	}

	eng := engine.New(db, engine.Options{Now: func() time.Time { return testNow }})
	sched := engine.NewScheduler(eng.RecomputeEnrollment, eng.ListActiveEnrollmentIDs, engine.SchedulerOptions{})

	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.EngineMiddleware(eng, sched))

	r.POST("/enrollment", CreateEnrollment)
	r.POST("/enrollment/:id/recompute-horizon", RecomputeEnrollmentHorizon)
	r.GET("/enrollment/:id/progress", GetEnrollmentProgress)
	r.POST("/attendance", MarkAttendance)
	r.PATCH("/attendance/:id", UpdateAttendance)
	r.DELETE("/attendance/:id", DeleteAttendance)
	r.POST("/dispensation", RecordDispensation)
	r.GET("/dispensation/upcoming", ListUpcomingDispensations)
	r.GET("/dashboard/program-duration", ProgramDurationSummary)

	return &testEnv{router: r, db: db, eng: eng, sched: sched}
}

// request performs an HTTP request against the test router and decodes the
// JSON envelope. body may be nil, a raw JSON string or a marshalable value.
func (env *testEnv) request(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *strings.Reader
	switch v := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = strings.NewReader(string(b))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, response
}

func (env *testEnv) seedProgram(t *testing.T, sessionFrequency string, durationInDays int) model.Program {
	t.Helper()
	p := model.Program{
		Name:             "Test Program",
		Status:           "Active",
		SessionFrequency: sessionFrequency,
		DurationInDays:   durationInDays,
	}
	if err := env.db.Create(&p).Error; err != nil {
		t.Fatalf("failed to seed program: %v", err)
	}
	return p
}

func (env *testEnv) seedEnrollment(t *testing.T, patientID, programID uint, enrolled time.Time, completed *time.Time) model.PatientEnrollment {
	t.Helper()
	e := model.PatientEnrollment{
		PatientID:      patientID,
		ProgramID:      programID,
		EnrollmentDate: enrolled,
		CompletedDate:  completed,
		Status:         model.EnrollmentStatusActive,
	}
	if err := env.db.Create(&e).Error; err != nil {
		t.Fatalf("failed to seed enrollment: %v", err)
	}
	return e
}

// responseData extracts the data object from the API envelope.
func responseData(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %v", response)
	}
	return data
}
