// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package notify schedules event reminders.

Every registered person of a published, upcoming event gets one reminder at
start time minus the offset (two hours by default). Evaluate cancels all
pending reminders and schedules them again; Start runs it once and then on a
cron schedule:

	s := notify.NewScheduler(repo, notify.LogNotifier{}, 2*time.Hour)
	if err := s.Start("@every 10m"); err != nil {
		log.Fatal(err)
	}
	defer s.Stop()

Reminders are delivered by a Notifier: LogNotifier logs them,
SendgridNotifier emails people who have an address.
*/
package notify
