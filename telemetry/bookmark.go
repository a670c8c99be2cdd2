package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkOnset      BookmarkType = "onset"
	BookmarkFading     BookmarkType = "fading"
	BookmarkGazeLoss   BookmarkType = "gaze_loss"
	BookmarkSaturation BookmarkType = "saturation"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Tick        int32
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPeak    float64 // Peak mean activation since the last fading bookmark
	gazeLost      bool    // Inside a gaze loss episode
	saturatedPrev bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// meanActivation averages both eyes.
func meanActivation(s WindowStats) float64 {
	return (s.LeftMean + s.RightMean) / 2
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Onset: activation > 2x rolling average
		if b := bd.checkOnset(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Fading: steady input while activation fell below half its peak
		if b := bd.checkFading(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if b := bd.checkGazeLoss(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSaturation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Update history
	bd.addToHistory(stats)

	if m := meanActivation(stats); m > bd.recentPeak {
		bd.recentPeak = m
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkOnset(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 2 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += meanActivation(h)
	}
	avg := total / float64(len(history))

	current := meanActivation(stats)
	if current > 0.05 && current > avg*2.0 {
		ratio := math.Inf(1)
		if avg > 0 {
			ratio = current / avg
		}
		return &Bookmark{
			Type:        BookmarkOnset,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Mean activation %.3f is %.1fx average (%.3f)", current, ratio, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkFading(stats WindowStats) *Bookmark {
	if bd.recentPeak <= 0.05 {
		return nil
	}

	prev := bd.history[(bd.historyIdx+bd.historySize-1)%bd.historySize]
	if stats.StimulusMean < 0.05 {
		return nil
	}
	// Input must be steady, otherwise the drop is just the stimulus going away
	if math.Abs(stats.StimulusMean-prev.StimulusMean) > 0.1*prev.StimulusMean {
		return nil
	}

	current := meanActivation(stats)
	if current < bd.recentPeak*0.5 {
		oldPeak := bd.recentPeak
		bd.recentPeak = current

		return &Bookmark{
			Type:        BookmarkFading,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Activation faded from %.3f to %.3f under steady input %.3f", oldPeak, current, stats.StimulusMean),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkGazeLoss(stats WindowStats) *Bookmark {
	lost := stats.GazeLost > 0.5
	defer func() { bd.gazeLost = lost }()
	if !lost || bd.gazeLost {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkGazeLoss,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Gaze invalid for %.0f%% of the window", stats.GazeLost*100),
	}
}

func (bd *BookmarkDetector) checkSaturation(stats WindowStats) *Bookmark {
	saturated := stats.LeftP90 > 1 || stats.RightP90 > 1
	defer func() { bd.saturatedPrev = saturated }()
	if !saturated || bd.saturatedPrev {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSaturation,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("p90 activation above display range (left %.2f, right %.2f)", stats.LeftP90, stats.RightP90),
	}
}
