package trip

import (
	"context"
	"strings"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/google/uuid"
)

// ShiftDirectory 行程开始前的在班检查。
type ShiftDirectory interface {
	HasActiveShift(ctx context.Context, driverID string) (bool, error)
}

// VehicleFleet 车辆占用与释放（条件更新语义）。
type VehicleFleet interface {
	Claim(ctx context.Context, vehicleID string) error
	Release(ctx context.Context, vehicleID string) error
}

// Service 行程领域用例。
type Service struct {
	store    Store
	shifts   ShiftDirectory
	vehicles VehicleFleet
	log      logger.Logger
}

func NewService(store Store, shifts ShiftDirectory, vehicles VehicleFleet, log logger.Logger) *Service {
	return &Service{store: store, shifts: shifts, vehicles: vehicles, log: log}
}

// StartTripInput 开始行程入参。
type StartTripInput struct {
	VehicleID     string   `json:"vehicleId"`
	StartLocation Location `json:"startLocation"`
}

// StartTrip 开始行程。顺序：在班检查 -> 占车 -> 落库。
// 占车和落库都是条件写入；落库失败时把车还回去，
// 避免车辆停在 in-use 却没有对应行程。
func (s *Service) StartTrip(ctx context.Context, driverID string, in StartTripInput) (*Trip, error) {
	driverID = strings.TrimSpace(driverID)
	in.VehicleID = strings.TrimSpace(in.VehicleID)
	if driverID == "" || in.VehicleID == "" {
		return nil, apperr.Validation("driverId and vehicleId are required")
	}

	onShift, err := s.shifts.HasActiveShift(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !onShift {
		return nil, apperr.Conflict("driver must start a shift before starting a trip")
	}

	if err := s.vehicles.Claim(ctx, in.VehicleID); err != nil {
		return nil, err
	}

	key := driverID
	tr := &Trip{
		ID:            uuid.NewString(),
		DriverID:      driverID,
		VehicleID:     in.VehicleID,
		Status:        StatusActive,
		ActiveKey:     &key,
		StartLocation: in.StartLocation,
		StartTime:     time.Now().UTC(),
	}
	if err := s.store.Create(ctx, tr); err != nil {
		if relErr := s.vehicles.Release(ctx, in.VehicleID); relErr != nil {
			s.log.Errorf("release vehicle %s after failed trip insert: %v", in.VehicleID, relErr)
		}
		return nil, err
	}

	s.log.Infof("trip started: %s driver=%s vehicle=%s", tr.ID, driverID, in.VehicleID)
	return tr, nil
}

// CompleteTripInput 完成行程入参。
type CompleteTripInput struct {
	EndLocation Location `json:"endLocation"`
	Distance    float64  `json:"distance"`
	Fare        float64  `json:"fare"`
}

// CompleteTrip 完成行程并释放车辆。
func (s *Service) CompleteTrip(ctx context.Context, driverID, tripID string, in CompleteTripInput) (*Trip, error) {
	if in.Distance < 0 || in.Fare < 0 {
		return nil, apperr.Validation("distance and fare cannot be negative")
	}
	tr, err := s.ownedActiveTrip(ctx, driverID, tripID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := ApplyTransition(tr, StatusCompleted, now); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	loc := in.EndLocation
	tr.EndLocation = &loc
	tr.Distance = in.Distance
	tr.Fare = in.Fare
	if err := s.store.Update(ctx, tr); err != nil {
		return nil, err
	}

	s.releaseVehicle(ctx, tr.VehicleID)
	s.log.Infof("trip completed: %s distance=%.2f fare=%.2f", tr.ID, tr.Distance, tr.Fare)
	return tr, nil
}

// CancelTrip 取消行程并释放车辆。
func (s *Service) CancelTrip(ctx context.Context, driverID, tripID, reason string) (*Trip, error) {
	tr, err := s.ownedActiveTrip(ctx, driverID, tripID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := ApplyTransition(tr, StatusCancelled, now); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	tr.CancellationReason = strings.TrimSpace(reason)
	if err := s.store.Update(ctx, tr); err != nil {
		return nil, err
	}

	s.releaseVehicle(ctx, tr.VehicleID)
	s.log.Infof("trip cancelled: %s driver=%s", tr.ID, driverID)
	return tr, nil
}

// RateTrip 评价行程：1-5 分，只允许一次，且仅限已完成行程。
func (s *Service) RateTrip(ctx context.Context, driverID, tripID string, rating int, review string) (*Trip, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	tr, err := s.store.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if tr.DriverID != driverID {
		return nil, apperr.NotFound("trip not found")
	}
	if tr.Status != StatusCompleted {
		return nil, apperr.Conflict("only completed trips can be rated")
	}
	if tr.Rated() {
		return nil, apperr.Conflict("trip has already been rated")
	}

	tr.Rating = &rating
	tr.Review = strings.TrimSpace(review)
	if err := s.store.Update(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// ListDriverTrips 司机行程列表，开始时间倒序分页。page 从 1 起。
func (s *Service) ListDriverTrips(ctx context.Context, driverID string, start, end time.Time, page, limit int) ([]Trip, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListByDriver(ctx, driverID, start, end, (page-1)*limit, limit)
}

// GetTrip 查询单个行程，只允许本人。
func (s *Service) GetTrip(ctx context.Context, driverID, tripID string) (*Trip, error) {
	tr, err := s.store.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if tr.DriverID != driverID {
		return nil, apperr.NotFound("trip not found")
	}
	return tr, nil
}

// DriverStats 司机行程统计。
type DriverStats struct {
	TotalTrips     int     `json:"totalTrips"`
	CompletedTrips int     `json:"completedTrips"`
	CancelledTrips int     `json:"cancelledTrips"`
	ActiveTrips    int     `json:"activeTrips"`
	TotalDistance  float64 `json:"totalDistance"`
	TotalEarnings  float64 `json:"totalEarnings"`
	AverageRating  float64 `json:"averageRating"`
}

// GetDriverStats 距离/收入只计完成行程，评分只计已评价行程，无评价为 0。
func (s *Service) GetDriverStats(ctx context.Context, driverID string, start, end time.Time) (*DriverStats, error) {
	trips, err := s.store.AllByDriver(ctx, driverID, start, end)
	if err != nil {
		return nil, err
	}

	st := &DriverStats{}
	ratingSum, rated := 0, 0
	for i := range trips {
		tr := &trips[i]
		st.TotalTrips++
		switch tr.Status {
		case StatusCompleted:
			st.CompletedTrips++
			st.TotalDistance += tr.Distance
			st.TotalEarnings += tr.Fare
		case StatusCancelled:
			st.CancelledTrips++
		case StatusActive:
			st.ActiveTrips++
		}
		if tr.Rated() {
			ratingSum += *tr.Rating
			rated++
		}
	}
	if rated > 0 {
		st.AverageRating = float64(ratingSum) / float64(rated)
	}
	return st, nil
}

func (s *Service) ownedActiveTrip(ctx context.Context, driverID, tripID string) (*Trip, error) {
	tr, err := s.store.FindByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if tr.DriverID != driverID {
		return nil, apperr.NotFound("trip not found")
	}
	if tr.Status != StatusActive {
		return nil, apperr.Conflict("trip is not active")
	}
	return tr, nil
}

// releaseVehicle 状态已落库后释放车辆，失败只记日志不回滚。
func (s *Service) releaseVehicle(ctx context.Context, vehicleID string) {
	if err := s.vehicles.Release(ctx, vehicleID); err != nil {
		s.log.Errorf("release vehicle %s: %v", vehicleID, err)
	}
}
