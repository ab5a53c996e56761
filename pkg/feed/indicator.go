package feed

import (
	"github.com/rs/zerolog"
)

// Indicator is the visual progress signal of page loads.
type Indicator interface {
	// Start is called when a page load begins.
	Start(page int)
	// Stop is called when a page load resolves.
	Stop(page int)
	// Retire is called once when no pages remain.
	Retire()
}

// LogIndicator reports progress as log lines.
type LogIndicator struct {
	logger zerolog.Logger
}

// NewLogIndicator creates an indicator writing to logger.
func NewLogIndicator(logger zerolog.Logger) *LogIndicator {
	return &LogIndicator{logger: logger}
}

func (i *LogIndicator) Start(page int) {
	i.logger.Info().Int("page", page).Msg("Loading page")
}

func (i *LogIndicator) Stop(page int) {
	i.logger.Debug().Int("page", page).Msg("Page load finished")
}

func (i *LogIndicator) Retire() {
	i.logger.Info().Msg("All pages loaded")
}

type nopIndicator struct{}

func (nopIndicator) Start(int) {}
func (nopIndicator) Stop(int)  {}
func (nopIndicator) Retire()   {}
