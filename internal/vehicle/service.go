package vehicle

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/google/uuid"
)

// Service 车辆目录业务逻辑。
type Service struct {
	store Store
	log   logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// CreateVehicleInput 新建车辆入参。
type CreateVehicleInput struct {
	Type         string  `json:"type"`
	Model        string  `json:"model"`
	LicensePlate string  `json:"licensePlate"`
	FuelCapacity float64 `json:"fuelCapacity"`
}

// CreateVehicle 新车入库：满油、可派。
func (s *Service) CreateVehicle(ctx context.Context, in CreateVehicleInput) (*Vehicle, error) {
	in.Type = strings.TrimSpace(in.Type)
	in.Model = strings.TrimSpace(in.Model)
	in.LicensePlate = strings.ToUpper(strings.TrimSpace(in.LicensePlate))
	if in.Type == "" || in.Model == "" || in.LicensePlate == "" {
		return nil, apperr.Validation("type, model and licensePlate are required")
	}
	if in.FuelCapacity <= 0 {
		return nil, apperr.Validation("fuelCapacity must be positive")
	}

	now := time.Now().UTC()
	v := &Vehicle{
		ID:              uuid.NewString(),
		VehicleID:       NewVehicleID(),
		Type:            in.Type,
		Model:           in.Model,
		LicensePlate:    in.LicensePlate,
		Status:          StatusAvailable,
		LastMaintenance: now,
		FuelCapacity:    in.FuelCapacity,
		CurrentFuel:     in.FuelCapacity,
	}
	if err := s.store.Create(ctx, v); err != nil {
		return nil, err
	}
	s.log.Infof("vehicle created: %s (%s %s)", v.VehicleID, v.Type, v.Model)
	return v, nil
}

func (s *Service) GetVehicle(ctx context.Context, vehicleID string) (*Vehicle, error) {
	return s.store.FindByVehicleID(ctx, vehicleID)
}

// UpdateLocation 上报车辆位置。
func (s *Service) UpdateLocation(ctx context.Context, vehicleID string, lng, lat float64) (*Vehicle, error) {
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return nil, apperr.Validation("coordinates out of range")
	}
	v, err := s.store.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	v.Longitude = &lng
	v.Latitude = &lat
	if err := s.store.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateFuel 更新油量，超出油箱容量视为脏数据。
func (s *Service) UpdateFuel(ctx context.Context, vehicleID string, fuel float64) (*Vehicle, error) {
	if fuel < 0 {
		return nil, apperr.Validation("fuel cannot be negative")
	}
	v, err := s.store.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if fuel > v.FuelCapacity {
		return nil, apperr.Validation("fuel exceeds tank capacity")
	}
	v.CurrentFuel = fuel
	if err := s.store.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SetStatus 人工调度状态（例如进出维保）。
func (s *Service) SetStatus(ctx context.Context, vehicleID string, status Status) (*Vehicle, error) {
	if !ValidStatus(status) {
		return nil, apperr.Validation(fmt.Sprintf("unknown status: %s", status))
	}
	v, err := s.store.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v.Status == StatusInUse && status != StatusInUse {
		return nil, apperr.Conflict("vehicle is in use; finish the trip first")
	}
	if status == StatusMaintenance {
		v.LastMaintenance = time.Now().UTC()
	}
	v.Status = status
	if err := s.store.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) FindAvailable(ctx context.Context, vehicleType string) ([]Vehicle, error) {
	return s.store.FindAvailable(ctx, vehicleType)
}

// NearbyVehicle 附近车辆查询结果。
type NearbyVehicle struct {
	Vehicle
	DistanceKm float64 `json:"distanceKm"`
}

// FindNearby 在可派车辆里按球面距离筛选，radiusKm <= 0 时默认 5 公里。
func (s *Service) FindNearby(ctx context.Context, lng, lat, radiusKm float64) ([]NearbyVehicle, error) {
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return nil, apperr.Validation("coordinates out of range")
	}
	if radiusKm <= 0 {
		radiusKm = 5
	}
	candidates, err := s.store.FindAvailable(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]NearbyVehicle, 0)
	for i := range candidates {
		v := candidates[i]
		if !v.HasLocation() {
			continue
		}
		d := haversineKm(lat, lng, *v.Latitude, *v.Longitude)
		if d <= radiusKm {
			out = append(out, NearbyVehicle{Vehicle: v, DistanceKm: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func (s *Service) Search(ctx context.Context, query string, offset, limit int) ([]Vehicle, int64, error) {
	return s.store.Search(ctx, strings.TrimSpace(query), offset, limit)
}

// VehicleStats 单车运营指标。
type VehicleStats struct {
	VehicleID           string  `json:"vehicleId"`
	Status              Status  `json:"status"`
	FuelPercentage      float64 `json:"fuelPercentage"`
	DaysSinceMaintained int     `json:"daysSinceMaintained"`
	HasLocation         bool    `json:"hasLocation"`
}

func (s *Service) Stats(ctx context.Context, vehicleID string) (*VehicleStats, error) {
	v, err := s.store.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	st := &VehicleStats{
		VehicleID:           v.VehicleID,
		Status:              v.Status,
		DaysSinceMaintained: int(time.Since(v.LastMaintenance).Hours() / 24),
		HasLocation:         v.HasLocation(),
	}
	if v.FuelCapacity > 0 {
		st.FuelPercentage = math.Round(v.CurrentFuel/v.FuelCapacity*10000) / 100
	}
	return st, nil
}

// DeleteVehicle 占用中的车辆不可删除。
func (s *Service) DeleteVehicle(ctx context.Context, vehicleID string) error {
	if err := s.store.Delete(ctx, vehicleID); err != nil {
		return err
	}
	s.log.Infof("vehicle deleted: %s", vehicleID)
	return nil
}

// haversineKm 两点球面距离（公里）。
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
