// internal/backup/scheduler.go
package backup

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler periodically archives a Source and prunes old snapshots.
type Scheduler struct {
	archive   *Archive
	source    Source
	interval  time.Duration
	retention time.Duration
	onSave    func(Info, error)
}

func NewScheduler(archive *Archive, source Source, interval, retention time.Duration) *Scheduler {
	return &Scheduler{
		archive:   archive,
		source:    source,
		interval:  interval,
		retention: retention,
	}
}

// OnSave registers a callback invoked after every scheduled backup attempt.
func (s *Scheduler) OnSave(fn func(Info, error)) {
	s.onSave = fn
}

// Run backs up immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"interval":  s.interval,
		"retention": s.retention,
	}).Info("Starting backup scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Backup scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce takes one snapshot and applies retention.
func (s *Scheduler) RunOnce(ctx context.Context) (Info, error) {
	info, err := s.backup(ctx)
	if s.onSave != nil {
		s.onSave(info, err)
	}
	if err != nil {
		logrus.WithError(err).Error("Scheduled backup failed")
		return info, err
	}

	logrus.WithFields(logrus.Fields{
		"key":  info.Key,
		"size": info.Size,
	}).Debug("Scheduled backup saved")

	if s.retention > 0 {
		if _, err := s.archive.Prune(ctx, time.Now().Add(-s.retention)); err != nil {
			logrus.WithError(err).Warn("Failed to prune snapshots")
		}
	}
	return info, nil
}

func (s *Scheduler) backup(ctx context.Context) (Info, error) {
	data, err := s.source.Snapshot(ctx)
	if err != nil {
		return Info{}, err
	}
	return s.archive.Save(ctx, data)
}
