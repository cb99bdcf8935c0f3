package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/chorecal/internal/chore"
	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
	"github.com/dukerupert/chorecal/internal/websocket"
)

type ChoreLister interface {
	ListActive(start, end time.Time) ([]model.Chore, error)
}

type MemberLister interface {
	List() ([]model.Member, error)
}

type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// DigestReport is the payload of a digest_ready message.
type DigestReport struct {
	Date string `json:"date"`
	chore.Summary
	Open int `json:"open"`
}

// Digest summarizes today's occurrences and announces the result.
type Digest struct {
	chores       ChoreLister
	members      MemberLister
	materializer *chore.Materializer
	hub          Broadcaster
	now          func() time.Time
	logger       *slog.Logger
}

func NewDigest(chores ChoreLister, members MemberLister, m *chore.Materializer, hub Broadcaster, logger *slog.Logger) *Digest {
	return &Digest{
		chores:       chores,
		members:      members,
		materializer: m,
		hub:          hub,
		now:          time.Now,
		logger:       logger,
	}
}

func (d *Digest) Build() (DigestReport, error) {
	now := d.now()
	today := recurrence.Day(now)
	win := recurrence.Window{Start: today, End: today}

	chores, err := d.chores.ListActive(win.Start, win.End)
	if err != nil {
		return DigestReport{}, fmt.Errorf("list chores: %w", err)
	}
	members, err := d.members.List()
	if err != nil {
		return DigestReport{}, fmt.Errorf("list members: %w", err)
	}
	events, err := d.materializer.Materialize(chores, members, win)
	if err != nil {
		return DigestReport{}, fmt.Errorf("materialize: %w", err)
	}

	s := chore.Summarize(events, now)
	return DigestReport{Date: recurrence.FormatDate(today), Summary: s, Open: s.Open()}, nil
}

// Run is the cron entry point. Failures are logged; the next run retries.
func (d *Digest) Run() {
	report, err := d.Build()
	if err != nil {
		d.logger.Error("digest failed", "error", err)
		return
	}
	d.logger.Info("daily digest",
		"date", report.Date,
		"open", report.Open,
		"completed", report.Completed,
	)
	if d.hub != nil {
		d.hub.Broadcast(websocket.DigestMessage(report))
	}
}
