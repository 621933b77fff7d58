package trip

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
)

func newTestService(vehicleIDs ...string) (*Service, *fakeStore, *fakeShifts, *fakeFleet) {
	store := newFakeStore()
	shifts := newFakeShifts()
	fleet := newFakeFleet(vehicleIDs...)
	return NewService(store, shifts, fleet, logger.Nop()), store, shifts, fleet
}

func startTrip(t *testing.T, s *Service, driverID, vehicleID string) *Trip {
	t.Helper()
	tr, err := s.StartTrip(context.Background(), driverID, StartTripInput{
		VehicleID:     vehicleID,
		StartLocation: Location{Longitude: 74.35, Latitude: 31.52},
	})
	if err != nil {
		t.Fatalf("StartTrip: %v", err)
	}
	return tr
}

func TestStartTripRequiresActiveShift(t *testing.T) {
	s, _, shifts, fleet := newTestService("VEH-1")

	_, err := s.StartTrip(context.Background(), "driver-1", StartTripInput{VehicleID: "VEH-1"})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("no active shift should conflict, got %v", err)
	}
	if fleet.claimed("VEH-1") {
		t.Fatalf("vehicle must not be claimed when the shift check fails")
	}

	shifts.set("driver-1", true)
	tr := startTrip(t, s, "driver-1", "VEH-1")
	if tr.Status != StatusActive {
		t.Fatalf("status = %s, want active", tr.Status)
	}
	if !fleet.claimed("VEH-1") {
		t.Fatalf("vehicle should be in use after trip start")
	}
}

func TestStartTripVehicleUnavailable(t *testing.T) {
	s, _, shifts, _ := newTestService("VEH-1")
	shifts.set("driver-1", true)
	shifts.set("driver-2", true)

	startTrip(t, s, "driver-1", "VEH-1")

	if _, err := s.StartTrip(context.Background(), "driver-2", StartTripInput{VehicleID: "VEH-1"}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("claimed vehicle should conflict, got %v", err)
	}
	if _, err := s.StartTrip(context.Background(), "driver-2", StartTripInput{VehicleID: "VEH-404"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown vehicle should be not found, got %v", err)
	}
}

func TestStartTripOnlyOneActivePerDriver(t *testing.T) {
	s, _, shifts, fleet := newTestService("VEH-1", "VEH-2")
	shifts.set("driver-1", true)

	startTrip(t, s, "driver-1", "VEH-1")

	_, err := s.StartTrip(context.Background(), "driver-1", StartTripInput{VehicleID: "VEH-2"})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("second active trip should conflict, got %v", err)
	}
	// 落库失败后第二辆车要被释放
	if fleet.claimed("VEH-2") {
		t.Fatalf("vehicle claimed by the losing attempt must be released")
	}
}

func TestStartTripConcurrent(t *testing.T) {
	vehicleIDs := []string{"VEH-0", "VEH-1", "VEH-2", "VEH-3", "VEH-4", "VEH-5", "VEH-6", "VEH-7"}
	s, _, shifts, fleet := newTestService(vehicleIDs...)
	shifts.set("driver-race", true)

	var wg sync.WaitGroup
	errs := make([]error, len(vehicleIDs))
	for i := range vehicleIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.StartTrip(context.Background(), "driver-race", StartTripInput{VehicleID: vehicleIDs[i]})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !apperr.IsKind(err, apperr.KindConflict) {
			t.Fatalf("loser should see a conflict, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one concurrent trip start should win, got %d", wins)
	}

	claimed := 0
	for _, id := range vehicleIDs {
		if fleet.claimed(id) {
			claimed++
		}
	}
	if claimed != 1 {
		t.Fatalf("exactly one vehicle should remain claimed, got %d", claimed)
	}
}

func TestStartTripReleasesVehicleOnInsertFailure(t *testing.T) {
	s, store, shifts, fleet := newTestService("VEH-1")
	shifts.set("driver-1", true)
	store.failCreate = true

	if _, err := s.StartTrip(context.Background(), "driver-1", StartTripInput{VehicleID: "VEH-1"}); err == nil {
		t.Fatalf("expected insert failure to propagate")
	}
	if fleet.claimed("VEH-1") {
		t.Fatalf("vehicle must be released when the insert fails")
	}
}

func TestCompleteTrip(t *testing.T) {
	s, _, shifts, fleet := newTestService("VEH-1")
	shifts.set("driver-1", true)
	tr := startTrip(t, s, "driver-1", "VEH-1")

	done, err := s.CompleteTrip(context.Background(), "driver-1", tr.ID, CompleteTripInput{
		EndLocation: Location{Longitude: 74.30, Latitude: 31.40},
		Distance:    12.4,
		Fare:        950,
	})
	if err != nil {
		t.Fatalf("CompleteTrip: %v", err)
	}
	if done.Status != StatusCompleted || done.EndTime == nil || done.EndLocation == nil {
		t.Fatalf("unexpected completed trip: %+v", done)
	}
	if done.Distance != 12.4 || done.Fare != 950 {
		t.Fatalf("distance/fare not stored: %+v", done)
	}
	if fleet.claimed("VEH-1") {
		t.Fatalf("vehicle should be available again after completion")
	}

	if _, err := s.CompleteTrip(context.Background(), "driver-1", tr.ID, CompleteTripInput{}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("completing twice should conflict, got %v", err)
	}

	// 完成后可以开下一个行程
	startTrip(t, s, "driver-1", "VEH-1")
}

func TestCancelTrip(t *testing.T) {
	s, _, shifts, fleet := newTestService("VEH-1")
	shifts.set("driver-1", true)
	tr := startTrip(t, s, "driver-1", "VEH-1")

	got, err := s.CancelTrip(context.Background(), "driver-1", tr.ID, "passenger no-show")
	if err != nil {
		t.Fatalf("CancelTrip: %v", err)
	}
	if got.Status != StatusCancelled || got.CancellationReason != "passenger no-show" {
		t.Fatalf("unexpected cancelled trip: %+v", got)
	}
	if fleet.claimed("VEH-1") {
		t.Fatalf("vehicle should be available again after cancellation")
	}
}

func TestRateTrip(t *testing.T) {
	s, _, shifts, _ := newTestService("VEH-1")
	shifts.set("driver-1", true)
	tr := startTrip(t, s, "driver-1", "VEH-1")

	if _, err := s.RateTrip(context.Background(), "driver-1", tr.ID, 5, ""); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("rating an active trip should conflict, got %v", err)
	}

	if _, err := s.CompleteTrip(context.Background(), "driver-1", tr.ID, CompleteTripInput{Distance: 1, Fare: 100}); err != nil {
		t.Fatalf("CompleteTrip: %v", err)
	}

	if _, err := s.RateTrip(context.Background(), "driver-1", tr.ID, 0, ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("rating below 1 should be a validation error, got %v", err)
	}
	if _, err := s.RateTrip(context.Background(), "driver-1", tr.ID, 6, ""); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("rating above 5 should be a validation error, got %v", err)
	}

	got, err := s.RateTrip(context.Background(), "driver-1", tr.ID, 4, "smooth ride")
	if err != nil {
		t.Fatalf("RateTrip: %v", err)
	}
	if !got.Rated() || *got.Rating != 4 || got.Review != "smooth ride" {
		t.Fatalf("rating not stored: %+v", got)
	}

	if _, err := s.RateTrip(context.Background(), "driver-1", tr.ID, 5, ""); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("re-rating should conflict, got %v", err)
	}
}

func TestTripOwnership(t *testing.T) {
	s, _, shifts, _ := newTestService("VEH-1")
	shifts.set("driver-1", true)
	tr := startTrip(t, s, "driver-1", "VEH-1")

	if _, err := s.CompleteTrip(context.Background(), "driver-2", tr.ID, CompleteTripInput{}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("another driver's trip should look like not found, got %v", err)
	}
	if _, err := s.GetTrip(context.Background(), "driver-2", tr.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("another driver's trip should look like not found, got %v", err)
	}
}

func TestDriverStats(t *testing.T) {
	s, store, _, _ := newTestService()

	now := time.Now().UTC()
	r1, r2 := 4, 5
	store.mu.Lock()
	store.trips["t1"] = &Trip{ID: "t1", DriverID: "driver-1", Status: StatusCompleted, StartTime: now.Add(-3 * time.Hour), Distance: 10, Fare: 800, Rating: &r1}
	store.trips["t2"] = &Trip{ID: "t2", DriverID: "driver-1", Status: StatusCompleted, StartTime: now.Add(-2 * time.Hour), Distance: 5, Fare: 400, Rating: &r2}
	store.trips["t3"] = &Trip{ID: "t3", DriverID: "driver-1", Status: StatusCancelled, StartTime: now.Add(-1 * time.Hour)}
	store.mu.Unlock()

	st, err := s.GetDriverStats(context.Background(), "driver-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetDriverStats: %v", err)
	}
	if st.TotalTrips != 3 || st.CompletedTrips != 2 || st.CancelledTrips != 1 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.TotalDistance != 15 || st.TotalEarnings != 1200 {
		t.Fatalf("unexpected totals: %+v", st)
	}
	if st.AverageRating != 4.5 {
		t.Fatalf("averageRating = %v, want 4.5", st.AverageRating)
	}

	empty, err := s.GetDriverStats(context.Background(), "driver-2", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetDriverStats: %v", err)
	}
	if empty.AverageRating != 0 || empty.TotalTrips != 0 {
		t.Fatalf("stats for a driver with no trips should be zero, got %+v", empty)
	}
}
