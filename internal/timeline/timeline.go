// Package timeline is C11: maintains per-subject ordered sequences of
// TimelineEvent, merging corroborating observations and answering the
// derived queries (milestones, estimated age, activity buckets) the
// report package needs.
package timeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osint-pipeline/investigator/internal/models"
)

// Builder is C11: a mutex-guarded per-subject event log, mirroring the
// teacher's per-context FIFO tracker but keyed by subject and merging on
// identity rather than trimming to a fixed window.
type Builder struct {
	mu     sync.RWMutex
	events map[string][]models.TimelineEvent // subjectID -> events
}

// New builds an empty timeline.
func New() *Builder {
	return &Builder{events: make(map[string][]models.TimelineEvent)}
}

// AddEvent records or merges one observation. Events sharing
// (subject_id, event_type, date, normalized_title) have their confidence
// raised via 1 - ∏(1 - c_i) and their sources unioned, per §4.11.
func (b *Builder) AddEvent(subjectID string, eventType models.EventCategory, title string, date time.Time, precision models.DatePrecision, confidence float64, sources []string, metadata map[string]string) models.TimelineEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	normalizedTitle := normalizeTitle(title)

	for i, e := range b.events[subjectID] {
		if e.EventType == eventType && e.Date.Equal(date) && e.NormalizedTitle == normalizedTitle {
			merged := mergeConfidence(e.Confidence, confidence)
			e.Confidence = merged
			e.Sources = unionStrings(e.Sources, sources)
			e.MergeCount++
			b.events[subjectID][i] = e
			return e
		}
	}

	event := models.TimelineEvent{
		EventID:         uuid.NewString(),
		SubjectID:       subjectID,
		EventType:       eventType,
		Title:           title,
		NormalizedTitle: normalizedTitle,
		Date:            date,
		Precision:       precision,
		Confidence:      confidence,
		Sources:         append([]string(nil), sources...),
		Metadata:        metadata,
		MergeCount:      1,
	}
	b.events[subjectID] = append(b.events[subjectID], event)
	return event
}

// Events returns a subject's events in chronological order.
func (b *Builder) Events(subjectID string) []models.TimelineEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := append([]models.TimelineEvent(nil), b.events[subjectID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func mergeConfidence(a, b float64) float64 {
	return 1 - (1-a)*(1-b)
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// milestoneKinds maps a canonical milestone name to the event category
// and a title substring that identifies it.
var milestoneKinds = []struct {
	name          string
	eventType     models.EventCategory
	titleContains string
}{
	{"birth", models.EventCategoryBirth, ""},
	{"school_graduation", models.EventCategoryEducation, "graduat"},
	{"first_job", models.EventCategoryJob, ""},
	{"marriage", models.EventCategoryRelationship, "marr"},
	{"founding", models.EventCategoryJob, "found"},
}

// Milestones returns the first occurrence per canonical milestone kind
// for a subject.
func (b *Builder) Milestones(subjectID string) map[string]models.TimelineEvent {
	events := b.Events(subjectID)
	out := make(map[string]models.TimelineEvent)

	for _, kind := range milestoneKinds {
		for _, e := range events {
			if e.EventType != kind.eventType {
				continue
			}
			if kind.titleContains != "" && !strings.Contains(e.NormalizedTitle, kind.titleContains) {
				continue
			}
			if _, found := out[kind.name]; !found {
				out[kind.name] = e
			}
			break
		}
	}
	return out
}

// EstimatedAge estimates a subject's age as of asOf: directly from a
// birth-kind event when available, else inferred from the first
// education or job event using a declared prior age at that milestone.
func (b *Builder) EstimatedAge(subjectID string, asOf time.Time) (int, bool) {
	events := b.Events(subjectID)

	for _, e := range events {
		if e.EventType == models.EventCategoryBirth {
			return yearsBetween(e.Date, asOf), true
		}
	}

	const priorAgeAtFirstJob = 22
	const priorAgeAtFirstEducationEvent = 18

	for _, e := range events {
		if e.EventType == models.EventCategoryJob {
			return priorAgeAtFirstJob + yearsBetween(e.Date, asOf), true
		}
	}
	for _, e := range events {
		if e.EventType == models.EventCategoryEducation {
			return priorAgeAtFirstEducationEvent + yearsBetween(e.Date, asOf), true
		}
	}
	return 0, false
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.YearDay() < from.YearDay() {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}

// Bucket is the granularity for ActivityBuckets.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

// ActivityBuckets counts events per bucket of the given granularity.
func (b *Builder) ActivityBuckets(subjectID string, bucket Bucket) map[string]int {
	events := b.Events(subjectID)
	out := make(map[string]int)
	for _, e := range events {
		out[bucketKey(e.Date, bucket)]++
	}
	return out
}

func bucketKey(t time.Time, bucket Bucket) string {
	switch bucket {
	case BucketDay:
		return t.Format("2006-01-02")
	case BucketWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case BucketMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006")
	}
}

// MostActivePeriods returns the topN buckets with the highest event
// counts, descending.
func (b *Builder) MostActivePeriods(subjectID string, bucket Bucket, topN int) []ActivityPeriod {
	counts := b.ActivityBuckets(subjectID, bucket)
	periods := make([]ActivityPeriod, 0, len(counts))
	for period, count := range counts {
		periods = append(periods, ActivityPeriod{Period: period, Count: count})
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Count != periods[j].Count {
			return periods[i].Count > periods[j].Count
		}
		return periods[i].Period < periods[j].Period
	})
	if topN < len(periods) {
		periods = periods[:topN]
	}
	return periods
}

// ActivityPeriod is one bucket's event count.
type ActivityPeriod struct {
	Period string
	Count  int
}
