package services

import (
	"context"

	glog "github.com/labstack/gommon/log"

	"school_transport_echo/internal/models"
)

// AttendanceService records daily transport roll calls
type AttendanceService struct {
	store     AttendanceStore
	directory Directory
	log       *glog.Logger
}

func NewAttendanceService(store AttendanceStore, directory Directory, log *glog.Logger) *AttendanceService {
	return &AttendanceService{store: store, directory: directory, log: log}
}

// AttendanceResult is the outcome of one record in a batch
type AttendanceResult struct {
	StudentID string                      `json:"studentId"`
	Success   bool                        `json:"success"`
	Error     string                      `json:"error,omitempty"`
	Record    *models.TransportAttendance `json:"record,omitempty"`
}

// SaveBatch upserts every record of the batch. A bad record fails alone and
// is reported in its result; only a malformed batch or an unknown route fails the call.
func (s *AttendanceService) SaveBatch(ctx context.Context, batch AttendanceBatch) ([]AttendanceResult, error) {
	if err := validateStruct(batch); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetRoute(ctx, batch.RouteID); err != nil {
		return nil, lookupErr("route", batch.RouteID, err)
	}

	results := make([]AttendanceResult, 0, len(batch.Records))
	saved := 0
	for _, rec := range batch.Records {
		res := AttendanceResult{StudentID: rec.StudentID}
		if rec.StudentID == "" {
			res.Error = "studentId is a required field"
			results = append(results, res)
			continue
		}
		if _, err := s.directory.GetStudent(ctx, rec.StudentID); err != nil {
			res.Error = lookupErr("student", rec.StudentID, err).Error()
			results = append(results, res)
			continue
		}

		present := true
		if rec.Present != nil {
			present = *rec.Present
		}
		record := &models.TransportAttendance{
			StudentID: rec.StudentID,
			RouteID:   batch.RouteID,
			Date:      batch.Date,
			BusID:     rec.BusID,
			Present:   present,
		}
		if err := s.store.UpsertAttendance(ctx, record); err != nil {
			s.log.Errorf("attendance upsert failed for student %s: %v", rec.StudentID, err)
			res.Error = "could not save attendance"
			results = append(results, res)
			continue
		}
		res.Success = true
		res.Record = record
		results = append(results, res)
		saved++
	}

	s.log.Infof("attendance %s route %s: %d/%d records saved", batch.Date, batch.RouteID, saved, len(batch.Records))
	return results, nil
}

// Find lists attendance records for a day and/or route
func (s *AttendanceService) Find(ctx context.Context, date, routeID string) ([]models.TransportAttendance, error) {
	if date != "" {
		if err := Validate.Var(date, "datetime=2006-01-02"); err != nil {
			return nil, newFieldError("date", "date must be formatted as YYYY-MM-DD")
		}
	}
	records, err := s.store.FindAttendance(ctx, date, routeID)
	if err != nil {
		return nil, &StoreError{Op: "find attendance", Err: err}
	}
	return records, nil
}
