package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/geo"
	"taxirural/internal/redis"
	"taxirural/internal/repository"
	"taxirural/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. The
// conditional transitions hold the mutex for the whole check-and-write,
// matching the atomicity the SQL conditional updates provide.
type MockRideRepository struct {
	mu    sync.Mutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	AcceptCallCount int32
	FinishCallCount int32

	// Error injection
	CreateError error
	AcceptError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRideRepository) GetPending(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Ride, 0)
	for _, r := range m.rides {
		if r.Status == domain.RideStatusPending {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rides {
		if r.DriverID == driverID && (r.Status == domain.RideStatusAccepted || r.Status == domain.RideStatusInProgress) {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) GetFinishedInPeriod(ctx context.Context, driverID string, start, end time.Time) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Ride, 0)
	for _, r := range m.rides {
		if r.DriverID != driverID || r.Status != domain.RideStatusFinished {
			continue
		}
		if r.FinalizedAt.Before(start) || r.FinalizedAt.After(end) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRideRepository) Accept(ctx context.Context, rideID, driverID string, driverLoc *domain.GeoPoint) error {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return m.AcceptError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusPending {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID
	ride.DriverLocation = driverLoc
	return nil
}

func (m *MockRideRepository) Start(ctx context.Context, rideID, driverID string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusAccepted || ride.DriverID != driverID {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusInProgress
	ride.StartedAt = startedAt
	return nil
}

func (m *MockRideRepository) Finish(ctx context.Context, rideID, driverID string, finalFare float64, finalizedAt time.Time) error {
	atomic.AddInt32(&m.FinishCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusInProgress || ride.DriverID != driverID {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusFinished
	ride.FinalFare = finalFare
	ride.FinalizedAt = finalizedAt
	return nil
}

func (m *MockRideRepository) Cancel(ctx context.Context, rideID string, cancelledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status.IsTerminal() {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = cancelledAt
	return nil
}

func (m *MockRideRepository) MarkPaymentDue(ctx context.Context, rideID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusFinished {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusPaymentDue
	ride.PaymentDueCode = reason
	return nil
}

func (m *MockRideRepository) UpdateDriverLocation(ctx context.Context, rideID string, loc domain.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	point := loc
	ride.DriverLocation = &point
	return nil
}

// GetRide returns the ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rides[id]
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount             int32
	SetAvailabilityCallCount    int32
	WriteBillingResultCallCount int32

	// Error injection
	CreateError             error
	WriteBillingResultError error
	// FailBillingFor makes WriteBillingResult fail for one driver ID.
	FailBillingFor string
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockDriverRepository) UpdateProfile(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.drivers[driver.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = driver.Name
	existing.Phone = driver.Phone
	existing.SearchRadiusKm = driver.SearchRadiusKm
	return nil
}

func (m *MockDriverRepository) SetAvailability(ctx context.Context, id string, available bool, at time.Time) error {
	atomic.AddInt32(&m.SetAvailabilityCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Available = available
	driver.LastActiveAt = at
	return nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.GeoPoint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	point := loc
	driver.Location = &point
	driver.LastActiveAt = at
	return nil
}

func (m *MockDriverRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Verified = verified
	return nil
}

func (m *MockDriverRepository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Suspended = suspended
	return nil
}

func (m *MockDriverRepository) ClearPaymentBlock(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.PaymentBlocked = false
	driver.PaymentStatus = domain.PaymentStatusPaid
	driver.PendingBalance = 0
	return nil
}

func (m *MockDriverRepository) WriteBillingResult(ctx context.Context, id string, result repository.BillingResult) error {
	atomic.AddInt32(&m.WriteBillingResultCallCount, 1)
	if m.WriteBillingResultError != nil {
		return m.WriteBillingResultError
	}
	if m.FailBillingFor == id {
		return ErrMockTimeout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.WeeklyTotal = result.WeeklyTotal
	driver.WeeklyFee = result.WeeklyFee
	driver.PaymentStatus = result.PaymentStatus
	driver.BillingPeriodStart = result.PeriodStart
	driver.BillingPeriodEnd = result.PeriodEnd
	driver.PendingBalance = result.WeeklyFee
	driver.PaymentBlocked = true
	driver.Available = false
	return nil
}

// GetDriver returns driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK TARIFF REPOSITORY
// ──────────────────────────────────────────────

// MockTariffRepository is a mock implementation of TariffRepository.
// Unset documents return ErrNotFound like the single-row tables do.
type MockTariffRepository struct {
	mu      sync.Mutex
	global  *domain.TariffConfig
	zones   []*domain.Zone
	billing *domain.BillingSettings
}

// NewMockTariffRepository creates a new mock tariff repository.
func NewMockTariffRepository() *MockTariffRepository {
	return &MockTariffRepository{}
}

func (m *MockTariffRepository) GetGlobal(ctx context.Context) (*domain.TariffConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.global == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.global
	return &copy, nil
}

func (m *MockTariffRepository) SaveGlobal(ctx context.Context, tariff domain.TariffConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = &tariff
	return nil
}

func (m *MockTariffRepository) ListZones(ctx context.Context) ([]*domain.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Zone, len(m.zones))
	copy(result, m.zones)
	return result, nil
}

func (m *MockTariffRepository) SaveZone(ctx context.Context, zone *domain.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, z := range m.zones {
		if z.Name == zone.Name {
			m.zones[i] = zone
			return nil
		}
	}
	m.zones = append(m.zones, zone)
	return nil
}

func (m *MockTariffRepository) GetBilling(ctx context.Context) (*domain.BillingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.billing == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.billing
	return &copy, nil
}

func (m *MockTariffRepository) SaveBilling(ctx context.Context, settings domain.BillingSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.billing = &settings
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError    error
	FindNearbyDriversError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindNearbyDriversError != nil {
		return nil, m.FindNearbyDriversError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	center := domain.GeoPoint{Lat: lat, Lng: lng}
	result := make([]redis.DriverLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		if geo.DistanceKm(center, domain.GeoPoint{Lat: loc.Lat, Lng: loc.Lng}) <= radiusKm {
			result = append(result, loc)
		}
	}
	// Closest first, like the GEORADIUS ASC sort.
	sort.Slice(result, func(i, j int) bool {
		di := geo.DistanceKm(center, domain.GeoPoint{Lat: result[i].Lat, Lng: result[i].Lng})
		dj := geo.DistanceKm(center, domain.GeoPoint{Lat: result[j].Lat, Lng: result[j].Lng})
		return di < dj
	})
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// HasLocation checks if a driver location exists.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireBillingLock(ctx context.Context, periodKey string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[periodKey]; exists && time.Now().Before(expiry) {
		return false, nil // Lock still held.
	}
	m.locks[periodKey] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseBillingLock(ctx context.Context, periodKey string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, periodKey)
	return nil
}

// IsLocked checks if a period is locked (for test assertions).
func (m *MockLockStore) IsLocked(periodKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[periodKey]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK DISPATCHER
// ──────────────────────────────────────────────

// DispatchedEvent records one dispatcher call for assertions.
type DispatchedEvent struct {
	Kind   string
	RideID string
	From   domain.RideStatus
	To     domain.RideStatus
}

// MockDispatcher records lifecycle events instead of publishing them.
type MockDispatcher struct {
	mu     sync.Mutex
	Events []DispatchedEvent
}

// NewMockDispatcher creates a new mock dispatcher.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) RideCreated(ctx context.Context, ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, DispatchedEvent{Kind: "created", RideID: ride.ID, To: ride.Status})
}

func (m *MockDispatcher) RideStatusChanged(ctx context.Context, ride *domain.Ride, from domain.RideStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, DispatchedEvent{Kind: "status_changed", RideID: ride.ID, From: from, To: ride.Status})
}

// EventCount returns the number of recorded events.
func (m *MockDispatcher) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}

// ──────────────────────────────────────────────
// MOCK RIDE FEED
// ──────────────────────────────────────────────

// MockRideFeed is an in-memory stand-in for the pub/sub change feed.
// Published events are recorded and forwarded to the stream Subscribe
// hands out; CloseStream ends the stream for its consumers.
type MockRideFeed struct {
	mu        sync.Mutex
	Published []redis.RideEvent
	stream    chan redis.RideEvent

	// Error injection
	SubscribeError error
}

// NewMockRideFeed creates a new mock ride feed.
func NewMockRideFeed() *MockRideFeed {
	return &MockRideFeed{stream: make(chan redis.RideEvent, 16)}
}

func (m *MockRideFeed) Publish(ctx context.Context, event redis.RideEvent) error {
	m.mu.Lock()
	m.Published = append(m.Published, event)
	m.mu.Unlock()

	select {
	case m.stream <- event:
	default:
	}
	return nil
}

func (m *MockRideFeed) Subscribe(ctx context.Context) (<-chan redis.RideEvent, error) {
	if m.SubscribeError != nil {
		return nil, m.SubscribeError
	}
	return m.stream, nil
}

// CloseStream ends the subscriber stream.
func (m *MockRideFeed) CloseStream() {
	close(m.stream)
}

// PublishedCount returns the number of recorded events.
func (m *MockRideFeed) PublishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT PROVIDER
// ──────────────────────────────────────────────

// MockPaymentProvider is a controllable PaymentProvider.
type MockPaymentProvider struct {
	mu sync.Mutex

	// Control behavior
	ShouldFail bool
	FailReason string
	FailError  error

	// Counters
	ChargeCallCount int32
}

// NewMockPaymentProvider creates a new mock payment provider.
func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) Charge(ctx context.Context, ride *domain.Ride) (service.ChargeResult, error) {
	atomic.AddInt32(&m.ChargeCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailError != nil {
		return service.ChargeResult{}, m.FailError
	}
	if m.ShouldFail {
		return service.ChargeResult{Succeeded: false, Reason: m.FailReason}, nil
	}
	return service.ChargeResult{Succeeded: true}, nil
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
