package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"tvscout/internal/models"
	"tvscout/internal/recent"
	"tvscout/internal/services"
	"tvscout/internal/validate"
)

const usage = `Usage: tvscout <command> [args]

  search <query...>  search the catalog
  show <id>          show details and remember the visit
  recent             list recently visited shows
  forget <id>        drop a show from the recent list
  clear              empty the recent list
  serve              run the HTTP API`

var ErrUsage = errors.New("invalid usage")

type Command struct {
	Name string
	Args []string
}

// Catalog is the part of services.Client the commands use.
type Catalog interface {
	SearchShows(ctx context.Context, query string) ([]models.SearchResult, error)
	ShowDetails(ctx context.Context, showID int64) (*models.Show, error)
}

type Handler struct {
	catalog Catalog
	recent  *recent.Cache
	logger  *logrus.Logger
	out     io.Writer
	serve   func(ctx context.Context) error
}

func NewHandler(catalog Catalog, recentCache *recent.Cache, logger *logrus.Logger, out io.Writer, serve func(ctx context.Context) error) *Handler {
	return &Handler{
		catalog: catalog,
		recent:  recentCache,
		logger:  logger,
		out:     out,
		serve:   serve,
	}
}

func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return Command{}
	}
	return Command{
		Name: strings.ToLower(strings.TrimPrefix(args[0], "/")),
		Args: args[1:],
	}
}

// Run executes one command. Failures are printed for the user and returned.
func (h *Handler) Run(ctx context.Context, args []string) error {
	command := ParseCommand(args)
	h.logger.WithFields(logrus.Fields{
		"command": command.Name,
		"args":    command.Args,
	}).Debug("Processing command")

	switch command.Name {
	case "search":
		return h.handleSearch(ctx, command)
	case "show":
		return h.handleShow(ctx, command)
	case "recent":
		h.print(services.FormatRecent(h.recent.List(ctx)))
		return nil
	case "forget":
		return h.handleForget(ctx, command)
	case "clear":
		h.recent.Clear(ctx)
		h.print("Recently visited list cleared.")
		return nil
	case "serve":
		if h.serve == nil {
			return fmt.Errorf("%w: serve is not available", ErrUsage)
		}
		return h.serve(ctx)
	case "", "help":
		h.print(usage)
		if command.Name == "" {
			return ErrUsage
		}
		return nil
	default:
		h.print("Unknown command.\n\n" + usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, command.Name)
	}
}

func (h *Handler) handleSearch(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		h.print("Please provide a show name to search. Example: tvscout search girls")
		return ErrUsage
	}

	query := strings.Join(cmd.Args, " ")
	results, err := h.catalog.SearchShows(ctx, query)
	if err != nil {
		h.reportError(err, "search")
		return err
	}

	h.print(services.FormatSearchResults(results))
	return nil
}

func (h *Handler) handleShow(ctx context.Context, cmd Command) error {
	id, err := parseID(cmd)
	if err != nil {
		h.print("Please provide a numeric show id. Example: tvscout show 139")
		return err
	}

	show, err := h.catalog.ShowDetails(ctx, id)
	if err != nil {
		h.reportError(err, "show")
		return err
	}

	h.recent.Record(ctx, *show)
	h.print(services.FormatShowDetails(*show))
	return nil
}

func (h *Handler) handleForget(ctx context.Context, cmd Command) error {
	id, err := parseID(cmd)
	if err != nil {
		h.print("Please provide a numeric show id. Example: tvscout forget 139")
		return err
	}

	h.print(services.FormatRecent(h.recent.Remove(ctx, id)))
	return nil
}

func (h *Handler) reportError(err error, command string) {
	switch {
	case errors.Is(err, services.ErrShowNotFound):
		h.print("Show not found.")
	case errors.Is(err, validate.ErrInvalid):
		h.print("Could not load: " + validate.ErrInvalid.Error() + ".")
	default:
		h.logger.WithError(err).WithField("command", command).Error("Catalog request failed")
		h.print("Error occurred while loading from the catalog. Please try again later.")
	}
}

func (h *Handler) print(text string) {
	_, _ = fmt.Fprintln(h.out, strings.TrimRight(text, "\n"))
}

func parseID(cmd Command) (int64, error) {
	if len(cmd.Args) != 1 {
		return 0, ErrUsage
	}
	id, err := strconv.ParseInt(cmd.Args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid show id %q", ErrUsage, cmd.Args[0])
	}
	return id, nil
}
