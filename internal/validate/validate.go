// Package validate turns loosely typed catalog JSON into the models types.
//
// A single entity is validated strictly: a missing or mistyped required field
// rejects it with a *ValidationError. Arrays are validated tolerantly: each
// element is checked on its own and elements that fail are dropped, keeping
// the rest in their original order. Optional fields and nested objects never
// reject their parent; bad values degrade to nil.
package validate

import (
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"

	"tvscout/internal/models"
)

type Validator struct {
	logger *logrus.Logger
}

// New returns a Validator that reports dropped elements to logger at debug
// level. A nil logger discards diagnostics.
func New(logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Validator{logger: logger}
}

// Show validates a single show payload, including its embedded bundle.
func (v *Validator) Show(raw []byte) (*models.Show, error) {
	if !json.Valid(raw) {
		return nil, malformed("show")
	}
	show, err := v.parseShow(raw, "")
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// Shows validates a list of shows, dropping the ones that fail.
func (v *Validator) Shows(raw []byte) ([]models.Show, error) {
	items, err := topLevelArray("shows", raw)
	if err != nil {
		return nil, err
	}
	return tolerant(v, "", items, v.parseShow), nil
}

func (v *Validator) SearchResults(raw []byte) ([]models.SearchResult, error) {
	items, err := topLevelArray("search results", raw)
	if err != nil {
		return nil, err
	}
	return tolerant(v, "", items, v.parseSearchResult), nil
}

func (v *Validator) Seasons(raw []byte) ([]models.Season, error) {
	items, err := topLevelArray("seasons", raw)
	if err != nil {
		return nil, err
	}
	return tolerant(v, "", items, parseSeason), nil
}

func (v *Validator) Episodes(raw []byte) ([]models.Episode, error) {
	items, err := topLevelArray("episodes", raw)
	if err != nil {
		return nil, err
	}
	return tolerant(v, "", items, parseEpisode), nil
}

func (v *Validator) Cast(raw []byte) ([]models.CastMember, error) {
	items, err := topLevelArray("cast", raw)
	if err != nil {
		return nil, err
	}
	return tolerant(v, "", items, parseCastMember), nil
}

func (v *Validator) Images(raw []byte) ([]models.ImageAsset, error) {
	items, err := topLevelArray("images", raw)
	if err != nil {
		return nil, err
	}
	return tolerant(v, "", items, v.parseImageAsset), nil
}

// RecentEntries validates a persisted recency list. Entries with a bad show
// or without a visit timestamp are dropped.
func (v *Validator) RecentEntries(raw []byte) ([]models.RecentlyVisited, error) {
	items, err := topLevelArray("recently visited shows", raw)
	if err != nil {
		return nil, err
	}
	return tolerant(v, "", items, v.parseRecent), nil
}

func malformed(entity string) error {
	return &ValidationError{Entity: entity, Issues: []Issue{{Path: rootPath, Message: "malformed JSON"}}}
}

func topLevelArray(entity string, raw []byte) ([]json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, malformed(entity)
	}
	items, ok := elements(raw)
	if !ok {
		return nil, &ValidationError{Entity: entity, Issues: []Issue{{Path: rootPath, Message: "expected array"}}}
	}
	return items, nil
}

// result is the per-element outcome of tolerant validation.
type result[T any] struct {
	value T
	err   error
}

func tolerant[T any](v *Validator, path string, items []json.RawMessage, parse func(json.RawMessage, string) (T, error)) []T {
	results := make([]result[T], len(items))
	for i, item := range items {
		value, err := parse(item, index(path, i))
		results[i] = result[T]{value: value, err: err}
	}

	out := make([]T, 0, len(items))
	for i, r := range results {
		if r.err != nil {
			v.logger.WithFields(logrus.Fields{
				"path":  index(path, i),
				"error": r.err.Error(),
			}).Debug("Dropped malformed element")
			continue
		}
		out = append(out, r.value)
	}
	return out
}

// collection validates an embedded array. Anything that is not an array
// becomes an empty collection.
func collection[T any](v *Validator, o object, key, path string, parse func(json.RawMessage, string) (T, error)) []T {
	p := join(path, key)
	items, ok := elements(o[key])
	if !ok {
		v.logger.WithField("path", p).Debug("Expected array, using empty collection")
		return []T{}
	}
	return tolerant(v, p, items, parse)
}

func notObject(entity, path string, raw json.RawMessage) error {
	c := checker{path: path}
	if isNull(raw) {
		c.fail("", "required")
	} else {
		c.fail("", "expected object")
	}
	return c.err(entity)
}

func (v *Validator) parseShow(raw json.RawMessage, path string) (models.Show, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.Show{}, notObject("show", path, raw)
	}

	c := checker{path: path}
	show := models.Show{
		ID:   c.requiredInt64(o, "id"),
		Name: c.requiredString(o, "name"),
	}
	if err := c.err("show"); err != nil {
		return models.Show{}, err
	}

	show.Genres = v.strings(o, "genres", path)
	show.Language = optionalString(o, "language")
	show.Premiered = optionalString(o, "premiered")
	show.Ended = optionalString(o, "ended")
	show.Summary = optionalString(o, "summary")
	show.Rating = parseRating(o["rating"])
	show.Image = parseImage(o["image"])
	show.Externals = parseExternals(o["externals"])
	show.Embedded = v.parseEmbedded(o, path)
	return show, nil
}

func (v *Validator) parseEmbedded(parent object, path string) *models.Embedded {
	o, ok := asObject(parent["_embedded"])
	if !ok {
		return nil
	}
	p := join(path, "_embedded")
	return &models.Embedded{
		Seasons:  collection(v, o, "seasons", p, parseSeason),
		Cast:     collection(v, o, "cast", p, parseCastMember),
		Episodes: collection(v, o, "episodes", p, parseEpisode),
		Images:   collection(v, o, "images", p, v.parseImageAsset),
	}
}

func (v *Validator) strings(o object, key, path string) []string {
	return collection(v, o, key, path, func(raw json.RawMessage, p string) (string, error) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			c := checker{path: p}
			c.fail("", "expected string")
			return "", c.err("string")
		}
		return s, nil
	})
}

func (v *Validator) parseSearchResult(raw json.RawMessage, path string) (models.SearchResult, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.SearchResult{}, notObject("search result", path, raw)
	}

	c := checker{path: path}
	score := c.requiredFloat(o, "score")
	if err := c.err("search result"); err != nil {
		return models.SearchResult{}, err
	}

	show, err := v.parseShow(o["show"], join(path, "show"))
	if err != nil {
		return models.SearchResult{}, err
	}
	return models.SearchResult{Score: score, Show: show}, nil
}

func (v *Validator) parseRecent(raw json.RawMessage, path string) (models.RecentlyVisited, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.RecentlyVisited{}, notObject("recently visited show", path, raw)
	}

	c := checker{path: path}
	visitedAt := c.requiredString(o, "visitedAt")
	if err := c.err("recently visited show"); err != nil {
		return models.RecentlyVisited{}, err
	}

	show, err := v.parseShow(o["show"], join(path, "show"))
	if err != nil {
		return models.RecentlyVisited{}, err
	}
	return models.RecentlyVisited{Show: show.WithoutEmbedded(), VisitedAt: visitedAt}, nil
}

func parseSeason(raw json.RawMessage, path string) (models.Season, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.Season{}, notObject("season", path, raw)
	}

	c := checker{path: path}
	season := models.Season{
		ID:     c.requiredInt64(o, "id"),
		Number: c.requiredInt(o, "number"),
	}
	if err := c.err("season"); err != nil {
		return models.Season{}, err
	}

	season.EpisodeOrder = optionalInt(o, "episodeOrder")
	season.PremiereDate = optionalString(o, "premiereDate")
	season.EndDate = optionalString(o, "endDate")
	season.Summary = optionalString(o, "summary")
	season.Image = parseImage(o["image"])
	return season, nil
}

func parseEpisode(raw json.RawMessage, path string) (models.Episode, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.Episode{}, notObject("episode", path, raw)
	}

	c := checker{path: path}
	episode := models.Episode{
		ID:     c.requiredInt64(o, "id"),
		Name:   c.requiredString(o, "name"),
		Season: c.requiredInt(o, "season"),
		Number: c.requiredInt(o, "number"),
	}
	if err := c.err("episode"); err != nil {
		return models.Episode{}, err
	}

	episode.Runtime = optionalInt(o, "runtime")
	episode.Summary = optionalString(o, "summary")
	episode.Rating = parseRating(o["rating"])
	episode.Image = parseImage(o["image"])
	return episode, nil
}

func parseCastMember(raw json.RawMessage, path string) (models.CastMember, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.CastMember{}, notObject("cast member", path, raw)
	}

	person, err := parsePerson(o["person"], join(path, "person"))
	if err != nil {
		return models.CastMember{}, err
	}
	character, err := parseCharacter(o["character"], join(path, "character"))
	if err != nil {
		return models.CastMember{}, err
	}
	return models.CastMember{Person: person, Character: character}, nil
}

func parsePerson(raw json.RawMessage, path string) (models.Person, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.Person{}, notObject("person", path, raw)
	}

	c := checker{path: path}
	person := models.Person{
		ID:   c.requiredInt64(o, "id"),
		Name: c.requiredString(o, "name"),
	}
	if err := c.err("person"); err != nil {
		return models.Person{}, err
	}
	person.Image = parseImage(o["image"])
	return person, nil
}

func parseCharacter(raw json.RawMessage, path string) (models.Character, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.Character{}, notObject("character", path, raw)
	}

	c := checker{path: path}
	character := models.Character{
		ID:   c.requiredInt64(o, "id"),
		Name: c.requiredString(o, "name"),
	}
	if err := c.err("character"); err != nil {
		return models.Character{}, err
	}
	character.Image = parseImage(o["image"])
	return character, nil
}

func (v *Validator) parseImageAsset(raw json.RawMessage, path string) (models.ImageAsset, error) {
	o, ok := asObject(raw)
	if !ok {
		return models.ImageAsset{}, notObject("image", path, raw)
	}

	c := checker{path: path}
	asset := models.ImageAsset{
		ID:   c.requiredInt64(o, "id"),
		Type: c.requiredString(o, "type"),
	}
	if err := c.err("image"); err != nil {
		return models.ImageAsset{}, err
	}

	asset.Main = optionalBool(o, "main")
	asset.Resolutions = v.parseResolutions(o["resolutions"], join(path, "resolutions"))
	return asset, nil
}

// parseResolutions keeps every size entry that has a url, width and height.
func (v *Validator) parseResolutions(raw json.RawMessage, path string) map[string]models.Resolution {
	out := make(map[string]models.Resolution)
	o, ok := asObject(raw)
	if !ok {
		return out
	}
	for size, entry := range o {
		p := join(path, size)
		r, ok := asObject(entry)
		if !ok {
			v.logger.WithField("path", p).Debug("Dropped malformed resolution")
			continue
		}
		c := checker{path: p}
		res := models.Resolution{
			URL:    c.requiredString(r, "url"),
			Width:  c.requiredInt(r, "width"),
			Height: c.requiredInt(r, "height"),
		}
		if err := c.err("resolution"); err != nil {
			v.logger.WithFields(logrus.Fields{
				"path":  p,
				"error": err.Error(),
			}).Debug("Dropped malformed resolution")
			continue
		}
		out[size] = res
	}
	return out
}

func parseImage(raw json.RawMessage) *models.Image {
	o, ok := asObject(raw)
	if !ok {
		return nil
	}
	return &models.Image{
		Medium:   optionalString(o, "medium"),
		Original: optionalString(o, "original"),
	}
}

func parseRating(raw json.RawMessage) *models.Rating {
	o, ok := asObject(raw)
	if !ok {
		return nil
	}
	return &models.Rating{Average: optionalFloat(o, "average")}
}

func parseExternals(raw json.RawMessage) *models.Externals {
	o, ok := asObject(raw)
	if !ok {
		return nil
	}
	return &models.Externals{
		TVRage:  optionalInt64(o, "tvrage"),
		TheTVDB: optionalInt64(o, "thetvdb"),
		IMDb:    optionalString(o, "imdb"),
	}
}
