package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/wellpath/medtrack/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EngineEventType represents different types of engine and endpoint events
type EngineEventType string

const (
	EventEndpointCall          EngineEventType = "ENDPOINT_CALL"
	EventRecomputeFailed       EngineEventType = "RECOMPUTE_FAILED"
	EventRecomputeSkipped      EngineEventType = "RECOMPUTE_SKIPPED"
	EventSweepCompleted        EngineEventType = "SWEEP_COMPLETED"
	EventDuplicateDispensation EngineEventType = "DUPLICATE_DISPENSATION"
	EventBackfillAmbiguous     EngineEventType = "BACKFILL_AMBIGUOUS"
	EventRateLimitExceeded     EngineEventType = "RATE_LIMIT_EXCEEDED"
	EventUnauthorizedAccess    EngineEventType = "UNAUTHORIZED_ACCESS"
)

// EngineEvent represents an event to be logged
type EngineEvent struct {
	EventType    EngineEventType
	EnrollmentID uint
	PatientID    uint
	IP           string
	Message      string
	Details      map[string]interface{}
}

var eventLogger *log.Logger
var eventDB *gorm.DB

// SetEventLoggerDB sets a gorm DB instance used by the event logger.
// Call this during application startup (e.g. in main) after DB initialization.
func SetEventLoggerDB(db *gorm.DB) {
	eventDB = db
}

func init() {
	eventLogger = log.New(os.Stdout, "[ENGINE] ", log.LstdFlags|log.Lmsgprefix)
}

// GetEventLoggerForTest returns the current event logger so tests can restore it.
func GetEventLoggerForTest() *log.Logger {
	return eventLogger
}

// SetEventLoggerForTest swaps the event logger, letting tests capture output.
func SetEventLoggerForTest(l *log.Logger) {
	if l != nil {
		eventLogger = l
	}
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	// Truncate very long values to prevent log flooding
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogEngineEvent logs an engine event to stdout and persists it best-effort.
// A failed insert never fails the operation being logged.
func LogEngineEvent(event EngineEvent) {
	msg := fmt.Sprintf("Event=%s EnrollmentID=%d PatientID=%d IP=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		event.EnrollmentID,
		event.PatientID,
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.Message),
	)
	if len(event.Details) > 0 {
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}

	eventLogger.Println(msg)

	if eventDB != nil {
		var details datatypes.JSON
		if event.Details != nil {
			if b, err := json.Marshal(event.Details); err == nil {
				details = datatypes.JSON(b)
			}
		}
		row := model.EventLog{
			EventType:    string(event.EventType),
			EnrollmentID: event.EnrollmentID,
			PatientID:    event.PatientID,
			IP:           event.IP,
			Message:      event.Message,
			Details:      details,
		}
		if err := eventDB.Create(&row).Error; err != nil {
			eventLogger.Printf("failed to persist event log: %v", err)
		}
	}
}
