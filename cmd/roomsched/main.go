// Command roomsched manages a room-scoped calendar of events and the
// staffing shifts derived from each event's purchased labor budget.
//
// Usage:
//
//	roomsched <command> [flags]
//
// Commands: add-event, edit-event, copy-event, delete-event, list-events,
// export-ics. Configuration comes from ROOMSCHED_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/roomsched/internal/application"
	"github.com/example/roomsched/internal/config"
	"github.com/example/roomsched/internal/eventstore"
	"github.com/example/roomsched/internal/export"
	"github.com/example/roomsched/internal/logging"
	"github.com/example/roomsched/internal/metrics"
	"github.com/example/roomsched/internal/persistence"
	"github.com/example/roomsched/internal/persistence/file"
	"github.com/example/roomsched/internal/persistence/postgres"
	"github.com/example/roomsched/internal/persistence/sqlite"
	"github.com/example/roomsched/internal/report"
	"github.com/example/roomsched/internal/rooms"
)

// Exit codes mirror the operation error kinds so scripted callers can
// distinguish rejections without parsing output.
const (
	exitOK         = 0
	exitUnexpected = 1
	exitValidation = 2
	exitConflict   = 3
	exitNotFound   = 4
	exitUsage      = 64
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitUnexpected
	}

	logger := logging.NewLogger(cfg.LogLevel)
	ctx := logging.ContextWithLogger(context.Background(), logger)

	directory, err := rooms.LoadFile(cfg.RoomsFile)
	if err != nil {
		logger.Error("failed to load rooms", "file", cfg.RoomsFile, "error", err)
		return exitUnexpected
	}

	backing, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "backend", string(cfg.Store), "error", err)
		return exitUnexpected
	}

	store := eventstore.New()
	var saver *persistence.Autosaver
	if backing != nil {
		defer func() { _ = backing.Close() }()

		snapshot, err := backing.Load(ctx)
		if err != nil {
			logger.Error("failed to load events", "error", err)
			return exitUnexpected
		}
		store.Load(persistence.SplitSnapshot(snapshot))

		saver, err = persistence.NewAutosaver(backing, store, cfg.AutosaveCron, logger)
		if err != nil {
			logger.Error("failed to configure autosave", "error", err)
			return exitUnexpected
		}
		saver.Start()
	}

	service := application.NewEventServiceWithLogger(store, directory, uuid.NewString, time.Now, logger)
	service.SetMetrics(metrics.New(prometheus.NewRegistry()))
	if saver != nil {
		service.OnCommitted(saver.Notify)
	}

	code := dispatch(ctx, service, directory, args[0], args[1:])

	if saver != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := saver.Stop(flushCtx); err != nil {
			logger.Error("failed to flush events", "error", err)
			if code == exitOK {
				code = exitUnexpected
			}
		}
	}

	return code
}

func dispatch(ctx context.Context, service *application.EventService, directory *rooms.StaticDirectory, command string, args []string) int {
	switch command {
	case "add-event":
		return runAddEvent(ctx, service, args)
	case "edit-event":
		return runEditEvent(ctx, service, args)
	case "copy-event":
		return runCopyEvent(ctx, service, args)
	case "delete-event":
		return runDeleteEvent(ctx, service, args)
	case "list-events":
		return runListEvents(ctx, service, directory, args)
	case "export-ics":
		return runExportICS(ctx, service, directory, args)
	case "help", "-h", "--help":
		usage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `roomsched manages room bookings and derived staffing shifts.

Commands:
  add-event    -room ID -title T -start RFC3339 -end RFC3339 [-hours H]
  edit-event   -id ID [-room ID] [-title T] [-start RFC3339] [-end RFC3339] [-hours H]
  copy-event   -id ID [-room ID] [-title T] [-start RFC3339] [-end RFC3339] [-hours H]
  delete-event -id ID
  list-events  -room ID [-period day|week|month] [-ref RFC3339] [-from RFC3339] [-to RFC3339] [-deleted] [-shifts]
  export-ics   -room ID [-out FILE]
`)
}

func runAddEvent(ctx context.Context, service *application.EventService, args []string) int {
	fs := flag.NewFlagSet("add-event", flag.ContinueOnError)
	roomID := fs.String("room", "", "room identifier")
	title := fs.String("title", "", "event title")
	start := fs.String("start", "", "start time (RFC3339)")
	end := fs.String("end", "", "end time (RFC3339)")
	hours := fs.Float64("hours", 0, "purchased labor hours")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	startAt, err := parseTime(*start, "start")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitValidation
	}
	endAt, err := parseTime(*end, "end")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitValidation
	}

	result, opErr := service.AddEvent(ctx, application.AddEventParams{
		RoomID:         *roomID,
		Title:          *title,
		Start:          startAt,
		End:            endAt,
		PurchasedHours: *hours,
	})
	return printResult(result, opErr)
}

func runEditEvent(ctx context.Context, service *application.EventService, args []string) int {
	fs := flag.NewFlagSet("edit-event", flag.ContinueOnError)
	id := fs.String("id", "", "event identifier")
	parse := patchFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	patch, err := parse(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitValidation
	}

	result, opErr := service.EditEvent(ctx, application.EditEventParams{EventID: *id, Patch: patch})
	return printResult(result, opErr)
}

func runCopyEvent(ctx context.Context, service *application.EventService, args []string) int {
	fs := flag.NewFlagSet("copy-event", flag.ContinueOnError)
	id := fs.String("id", "", "source event identifier")
	parse := patchFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	overrides, err := parse(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitValidation
	}

	result, opErr := service.CopyEvent(ctx, application.CopyEventParams{SourceEventID: *id, Overrides: overrides})
	return printResult(result, opErr)
}

func runDeleteEvent(ctx context.Context, service *application.EventService, args []string) int {
	fs := flag.NewFlagSet("delete-event", flag.ContinueOnError)
	id := fs.String("id", "", "event identifier")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if err := service.DeleteEvent(ctx, *id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	fmt.Printf("deleted %s\n", *id)
	return exitOK
}

func runListEvents(ctx context.Context, service *application.EventService, directory *rooms.StaticDirectory, args []string) int {
	fs := flag.NewFlagSet("list-events", flag.ContinueOnError)
	roomID := fs.String("room", "", "room identifier")
	period := fs.String("period", "", "range preset: day, week or month")
	ref := fs.String("ref", "", "reference time for the period (RFC3339, default now)")
	from := fs.String("from", "", "explicit range start (RFC3339)")
	to := fs.String("to", "", "explicit range end (RFC3339)")
	withDeleted := fs.Bool("deleted", false, "include tombstoned events")
	withShifts := fs.Bool("shifts", false, "print shift requirements per event")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	params := application.ListEventsParams{RoomID: *roomID, IncludeDeleted: *withDeleted}

	var rangeFrom, rangeTo time.Time
	if *period != "" {
		reference := time.Now()
		if *ref != "" {
			parsed, err := parseTime(*ref, "ref")
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return exitValidation
			}
			reference = parsed
		}
		rangeFrom, rangeTo = report.Range(report.Period(*period), reference, time.Local)
		if rangeFrom.IsZero() {
			fmt.Fprintf(os.Stderr, "unknown period: %s\n", *period)
			return exitValidation
		}
		params.From = &rangeFrom
		params.To = &rangeTo
	}
	if *from != "" {
		parsed, err := parseTime(*from, "from")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitValidation
		}
		params.From = &parsed
	}
	if *to != "" {
		parsed, err := parseTime(*to, "to")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitValidation
		}
		params.To = &parsed
	}

	room, err := directory.Resolve(ctx, *roomID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown room: %s\n", *roomID)
		return exitValidation
	}

	results, err := service.ListEvents(ctx, params)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}

	fmt.Println(report.Title(room, report.Period(*period), rangeFrom, rangeTo))
	entries := make([]report.Entry, 0, len(results))
	for _, result := range results {
		entries = append(entries, report.Entry{Event: result.Event, Shifts: result.Shifts})
	}
	if err := report.WriteEvents(os.Stdout, room, entries); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUnexpected
	}
	if *withShifts {
		for _, result := range results {
			if err := report.WriteShifts(os.Stdout, result.Event, result.Shifts); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return exitUnexpected
			}
		}
	}
	return exitOK
}

func runExportICS(ctx context.Context, service *application.EventService, directory *rooms.StaticDirectory, args []string) int {
	fs := flag.NewFlagSet("export-ics", flag.ContinueOnError)
	roomID := fs.String("room", "", "room identifier")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	room, err := directory.Resolve(ctx, *roomID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown room: %s\n", *roomID)
		return exitValidation
	}

	results, err := service.ListEvents(ctx, application.ListEventsParams{RoomID: *roomID})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}

	entries := make([]export.Entry, 0, len(results))
	for _, result := range results {
		entries = append(entries, export.Entry{Event: result.Event, Shifts: result.Shifts})
	}

	writer := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUnexpected
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	if err := export.WriteICS(writer, room, entries); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUnexpected
	}
	return exitOK
}

// patchFlags registers the optional override flags shared by edit-event and
// copy-event and returns a resolver that builds the patch from the flags the
// caller actually set.
func patchFlags(fs *flag.FlagSet) func(*flag.FlagSet) (application.EventPatch, error) {
	roomID := fs.String("room", "", "room identifier")
	title := fs.String("title", "", "event title")
	start := fs.String("start", "", "start time (RFC3339)")
	end := fs.String("end", "", "end time (RFC3339)")
	hours := fs.Float64("hours", 0, "purchased labor hours")

	return func(fs *flag.FlagSet) (application.EventPatch, error) {
		patch := application.EventPatch{}
		var parseErr error
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "room":
				patch.RoomID = roomID
			case "title":
				patch.Title = title
			case "start":
				parsed, err := parseTime(*start, "start")
				if err != nil {
					parseErr = err
					return
				}
				patch.Start = &parsed
			case "end":
				parsed, err := parseTime(*end, "end")
				if err != nil {
					parseErr = err
					return
				}
				patch.End = &parsed
			case "hours":
				patch.PurchasedHours = hours
			}
		})
		return patch, parseErr
	}
}

func parseTime(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required (RFC3339, e.g. 2026-01-15T09:00:00Z)", field)
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %v", field, err)
	}
	return parsed, nil
}

func printResult(result application.Result, err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}

	fmt.Printf("event %s committed: %s %s - %s (%g purchased hours)\n",
		result.Event.ID,
		result.Event.RoomID,
		result.Event.Start.Format(time.RFC3339),
		result.Event.End.Format(time.RFC3339),
		result.Event.PurchasedHours,
	)
	if err := report.WriteShifts(os.Stdout, result.Event, result.Shifts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUnexpected
	}
	if err := report.WriteWarnings(os.Stderr, result.Warnings); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUnexpected
	}
	return exitOK
}

func exitCode(err error) int {
	switch application.ErrorKind(err) {
	case "validation":
		return exitValidation
	case "conflict":
		return exitConflict
	case "not_found":
		return exitNotFound
	default:
		return exitUnexpected
	}
}

func openStore(ctx context.Context, cfg config.Config) (persistence.Store, error) {
	switch cfg.Store {
	case config.BackendMemory:
		return nil, nil
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLiteDSN)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	case config.BackendJSON:
		return file.NewJSONStore(cfg.DataFile), nil
	case config.BackendCSV:
		return file.NewCSVStore(cfg.DataFile), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
