package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

type stubNotifier struct {
	err   error
	sent  []Alert
	calls int
}

func (s *stubNotifier) Notify(ctx context.Context, alert Alert) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, alert)
	return nil
}

type stubLocal struct {
	granted      bool
	permErr      error
	permRequests int
	alerts       int
}

func (s *stubLocal) RequestPermission(ctx context.Context) (bool, error) {
	s.permRequests++
	return s.granted, s.permErr
}

func (s *stubLocal) Alert(ctx context.Context, d detection.Detection) error {
	s.alerts++
	return nil
}

type stubLocation struct {
	loc detection.LatLng
	err error
}

func (s *stubLocation) Locate(ctx context.Context) (detection.LatLng, error) {
	return s.loc, s.err
}

func sampleDetection(category detection.Category) detection.Detection {
	return detection.Detection{
		ID:             "emergency_1",
		Timestamp:      time.Now(),
		DetectedPhrase: "help me",
		Category:       category,
		Confidence:     0.9,
	}
}

func TestStaffRoles(t *testing.T) {
	cases := []struct {
		category detection.Category
		want     []string
	}{
		{detection.CategoryMedical, []string{RoleMedicalStaff, RoleAdmin}},
		{detection.CategorySecurity, []string{RoleSecurityStaff, RoleAdmin}},
		{detection.CategoryFire, []string{RoleMedicalStaff, RoleSecurityStaff, RoleFireSafety, RoleAdmin}},
		{detection.CategoryGeneral, []string{RoleAdmin}},
	}
	for _, tc := range cases {
		got := StaffRoles(tc.category)
		if len(got) != len(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.category, tc.want, got)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: expected %v, got %v", tc.category, tc.want, got)
				break
			}
		}
	}
}

func TestDispatchDeliversWithRolesAndLocation(t *testing.T) {
	notifier := &stubNotifier{}
	location := &stubLocation{loc: detection.LatLng{Lat: 6.52, Lng: 3.37}}
	d := NewDispatcher(notifier, nil, location, 0, Logger.New(true))

	if !d.Dispatch(context.Background(), sampleDetection(detection.CategoryMedical)) {
		t.Error("Expected successful dispatch")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(notifier.sent))
	}

	alert := notifier.sent[0]
	if len(alert.Roles) != 2 || alert.Roles[0] != RoleMedicalStaff {
		t.Errorf("Unexpected roles: %v", alert.Roles)
	}
	if alert.Detection.Location == nil || alert.Detection.Location.Lat != 6.52 {
		t.Errorf("Expected location attached, got %+v", alert.Detection.Location)
	}
}

func TestDispatchNotifierFailure(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("unreachable")}
	d := NewDispatcher(notifier, nil, nil, 0, Logger.New(true))

	if d.Dispatch(context.Background(), sampleDetection(detection.CategoryGeneral)) {
		t.Error("Expected dispatch to report failure")
	}
}

func TestDispatchLocationFailureStillDelivers(t *testing.T) {
	notifier := &stubNotifier{}
	location := &stubLocation{err: errors.New("no fix")}
	d := NewDispatcher(notifier, nil, location, 0, Logger.New(true))

	if !d.Dispatch(context.Background(), sampleDetection(detection.CategoryFire)) {
		t.Error("Location failure must not block dispatch")
	}
	if notifier.sent[0].Detection.Location != nil {
		t.Error("Expected no location on the alert")
	}
}

func TestDispatchRequestsPermissionOnce(t *testing.T) {
	local := &stubLocal{granted: true}
	d := NewDispatcher(&stubNotifier{}, local, nil, 0, Logger.New(true))

	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), sampleDetection(detection.CategoryGeneral))
	}

	if local.permRequests != 1 {
		t.Errorf("Expected exactly one permission request, got %d", local.permRequests)
	}
	if local.alerts != 3 {
		t.Errorf("Expected 3 local alerts, got %d", local.alerts)
	}
}

func TestDispatchDeniedPermissionSkipsLocalAlerts(t *testing.T) {
	local := &stubLocal{granted: false}
	d := NewDispatcher(&stubNotifier{}, local, nil, 0, Logger.New(true))

	d.Dispatch(context.Background(), sampleDetection(detection.CategoryGeneral))
	d.Dispatch(context.Background(), sampleDetection(detection.CategoryGeneral))

	if local.permRequests != 1 {
		t.Errorf("Denied permission must not be re-requested, got %d requests", local.permRequests)
	}
	if local.alerts != 0 {
		t.Errorf("Expected no local alerts after denial, got %d", local.alerts)
	}
}

func TestDispatchWithoutNotifier(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, 0, Logger.New(true))
	if d.Dispatch(context.Background(), sampleDetection(detection.CategoryGeneral)) {
		t.Error("Dispatch without a notifier cannot report delivery")
	}
}
