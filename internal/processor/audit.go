package processor

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// Audit scans the store for states the participation rules forbid. Every
// finding is logged as a fatal data-integrity error and counted. Nothing is repaired.
func (p *Processor) Audit(ctx context.Context) (AuditReport, error) {
	var report AuditReport

	occupancy, err := p.store.OccupancyReport(ctx)
	if err != nil {
		return report, err
	}
	for _, o := range occupancy {
		if o.Occupied > o.MaxUsers {
			report.add(p, Violation{
				Kind:    ViolationOverbooked,
				EventID: o.EventID,
				Detail:  fmt.Sprintf("%d occupying registrations for %d slots", o.Occupied, o.MaxUsers),
			})
		}
	}

	dups, err := p.store.DuplicateRegistrations(ctx)
	if err != nil {
		return report, err
	}
	for _, d := range dups {
		report.add(p, Violation{
			Kind:    ViolationDuplicateRegistration,
			EventID: d.EventID,
			UserID:  d.UserID,
			Detail:  fmt.Sprintf("%d registration rows", d.Count),
		})
	}

	conflicts, err := p.store.WaitlistConflicts(ctx)
	if err != nil {
		return report, err
	}
	for _, w := range conflicts {
		report.add(p, Violation{
			Kind:    ViolationWaitlistConflict,
			EventID: w.EventID,
			UserID:  w.UserID,
			Detail:  "waitlisted while holding a slot",
		})
	}

	places, err := p.store.LeaderboardViolations(ctx)
	if err != nil {
		return report, err
	}
	for _, l := range places {
		report.add(p, Violation{
			Kind:    ViolationLeaderboardUnconfirmed,
			EventID: l.EventID,
			UserID:  l.UserID,
			Detail:  fmt.Sprintf("place %d held without a confirmed registration", l.Place),
		})
	}

	if report.Clean() {
		log.Info("Consistency audit passed", "events", len(occupancy))
	} else {
		log.Error("Consistency audit found violations", "count", len(report.Violations))
	}
	return report, nil
}

func (r *AuditReport) add(p *Processor, v Violation) {
	log.Error("Fatal data integrity error", "kind", v.Kind, "eventID", v.EventID, "userID", v.UserID, "detail", v.Detail)
	p.metrics.IncIntegrityViolation(v.Kind)
	r.Violations = append(r.Violations, v)
}
