package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"StockPull/internal/domain/models"
	"StockPull/internal/domain/repository"
	"StockPull/pkg/logger"
)

// UniverseConfig names the reference files produced by the offline build.
type UniverseConfig struct {
	Dir             string
	DomesticTickers string
	ForeignTickers  string
	DomesticNames   string
	ForeignExchange string
}

// exchangeCodes maps the long names used by listing files to quote service
// exchange codes.
var exchangeCodes = map[string]string{
	"NAS":           "NAS",
	"NASD":          "NAS",
	"NASDAQ":        "NAS",
	"NYS":           "NYS",
	"NYSE":          "NYS",
	"AMS":           "AMS",
	"AMEX":          "AMS",
	"NYSE AMERICAN": "AMS",
	"NYSEAMERICAN":  "AMS",
}

// StaticUniverse is the immutable reference universe. All lookups are
// read-only after construction, so it is safe for concurrent use.
type StaticUniverse struct {
	domestic  map[string]struct{}
	foreign   map[string]struct{}
	names     map[string]string
	exchanges map[string]string
}

var _ repository.Universe = (*StaticUniverse)(nil)

// NewStaticUniverse builds a universe from in-memory data. Domestic entries
// that are not six digits are dropped, name keys are normalized and exchange
// names mapped to exchange codes; unknown exchanges are dropped.
func NewStaticUniverse(domestic, foreign []string, names, exchanges map[string]string) *StaticUniverse {
	u := &StaticUniverse{
		domestic:  make(map[string]struct{}, len(domestic)),
		foreign:   make(map[string]struct{}, len(foreign)),
		names:     make(map[string]string, len(names)),
		exchanges: make(map[string]string, len(exchanges)),
	}
	for _, t := range domestic {
		if t = strings.TrimSpace(t); models.IsDomesticSymbol(t) {
			u.domestic[t] = struct{}{}
		}
	}
	for _, t := range foreign {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			u.foreign[t] = struct{}{}
		}
	}
	for name, ticker := range names {
		if key := models.NormalizeName(name); key != "" {
			u.names[key] = strings.TrimSpace(ticker)
		}
	}
	for ticker, ex := range exchanges {
		if code, ok := exchangeCodes[strings.ToUpper(strings.TrimSpace(ex))]; ok {
			u.exchanges[strings.ToUpper(strings.TrimSpace(ticker))] = code
		}
	}
	return u
}

// LoadUniverse reads the four reference files. A missing file yields an
// empty table and a warning; a malformed one is an error.
func LoadUniverse(cfg UniverseConfig, log *logger.Logger) (*StaticUniverse, error) {
	var (
		domestic, foreign []string
		names, exchanges  map[string]string
	)
	files := []struct {
		name string
		dest interface{}
	}{
		{cfg.DomesticTickers, &domestic},
		{cfg.ForeignTickers, &foreign},
		{cfg.DomesticNames, &names},
		{cfg.ForeignExchange, &exchanges},
	}
	for _, f := range files {
		path := filepath.Join(cfg.Dir, f.name)
		found, err := readJSON(path, f.dest)
		if err != nil {
			return nil, err
		}
		if !found {
			log.Warn("universe file missing, using empty table", logger.String("path", path))
		}
	}

	u := NewStaticUniverse(domestic, foreign, names, exchanges)
	log.Info("reference universe loaded",
		logger.Int("domestic", len(u.domestic)),
		logger.Int("foreign", len(u.foreign)),
		logger.Int("names", len(u.names)),
		logger.Int("exchanges", len(u.exchanges)),
	)
	return u, nil
}

func readJSON(path string, dest interface{}) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func (u *StaticUniverse) HasDomestic(ticker string) bool {
	_, ok := u.domestic[ticker]
	return ok
}

func (u *StaticUniverse) HasForeign(ticker string) bool {
	_, ok := u.foreign[ticker]
	return ok
}

// ResolveDomesticName looks up an already normalized company name.
func (u *StaticUniverse) ResolveDomesticName(normalizedName string) (string, bool) {
	if normalizedName == "" {
		return "", false
	}
	t, ok := u.names[normalizedName]
	return t, ok && t != ""
}

// ForeignExchange returns the exchange code recorded for ticker.
func (u *StaticUniverse) ForeignExchange(ticker string) (string, bool) {
	ex, ok := u.exchanges[ticker]
	return ex, ok
}
