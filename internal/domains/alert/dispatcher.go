package alert

import (
	"context"
	"sync"
	"time"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

// Staff roles alerts are routed to.
const (
	RoleMedicalStaff  = "medical_staff"
	RoleSecurityStaff = "security_staff"
	RoleFireSafety    = "fire_safety"
	RoleAdmin         = "admin"
)

// StaffRoles resolves the roles responsible for a detection category.
// Admins see everything.
func StaffRoles(category detection.Category) []string {
	switch category {
	case detection.CategoryMedical:
		return []string{RoleMedicalStaff, RoleAdmin}
	case detection.CategorySecurity:
		return []string{RoleSecurityStaff, RoleAdmin}
	case detection.CategoryFire:
		return []string{RoleMedicalStaff, RoleSecurityStaff, RoleFireSafety, RoleAdmin}
	default:
		return []string{RoleAdmin}
	}
}

// Alert is one routed notification.
type Alert struct {
	Detection detection.Detection `json:"detection"`
	Roles     []string            `json:"roles"`
}

// Notifier delivers alerts to the staff notification backend.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LocalAlerter surfaces alerts on the device itself. Permission gates it;
// the dispatcher asks exactly once per process.
type LocalAlerter interface {
	RequestPermission(ctx context.Context) (bool, error)
	Alert(ctx context.Context, d detection.Detection) error
}

// LocationProvider resolves the device position attached to outgoing alerts.
type LocationProvider interface {
	Locate(ctx context.Context) (detection.LatLng, error)
}

// Dispatcher fans a detection out to staff roles and, when permitted, the
// local device. A failed dispatch is reported, never fatal.
type Dispatcher struct {
	notifier Notifier
	local    LocalAlerter
	location LocationProvider
	logger   *Logger.Logger

	locateTimeout time.Duration

	mu          sync.Mutex
	permAsked   bool
	permGranted bool
}

func NewDispatcher(notifier Notifier, local LocalAlerter, location LocationProvider, locateTimeout time.Duration, logger *Logger.Logger) *Dispatcher {
	if locateTimeout <= 0 {
		locateTimeout = 3 * time.Second
	}
	return &Dispatcher{
		notifier:      notifier,
		local:         local,
		location:      location,
		locateTimeout: locateTimeout,
		logger:        logger,
	}
}

// Dispatch routes the detection. Returns true when the staff notification
// went out; local alerting and location lookup are best effort and never
// block the result.
func (d *Dispatcher) Dispatch(ctx context.Context, det detection.Detection) bool {
	if det.Location == nil && d.location != nil {
		locCtx, cancel := context.WithTimeout(ctx, d.locateTimeout)
		loc, err := d.location.Locate(locCtx)
		cancel()
		if err != nil {
			d.logger.Warnf("location unavailable for detection %s: %v", det.ID, err)
		} else {
			det.Location = &loc
		}
	}

	delivered := false
	if d.notifier != nil {
		alert := Alert{Detection: det, Roles: StaffRoles(det.Category)}
		if err := d.notifier.Notify(ctx, alert); err != nil {
			d.logger.Errorf("failed to notify staff for detection %s: %v", det.ID, err)
		} else {
			delivered = true
		}
	}

	d.alertLocally(ctx, det)
	return delivered
}

func (d *Dispatcher) alertLocally(ctx context.Context, det detection.Detection) {
	if d.local == nil {
		return
	}

	d.mu.Lock()
	if !d.permAsked {
		d.permAsked = true
		granted, err := d.local.RequestPermission(ctx)
		if err != nil {
			d.logger.Warnf("local alert permission request failed: %v", err)
		}
		d.permGranted = granted && err == nil
	}
	granted := d.permGranted
	d.mu.Unlock()

	if !granted {
		return
	}
	if err := d.local.Alert(ctx, det); err != nil {
		d.logger.Warnf("local alert failed for detection %s: %v", det.ID, err)
	}
}
