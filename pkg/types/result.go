package types

import "slices"

// Bucket names one result list of SearchResults
type Bucket string

const (
	BucketApps      Bucket = "apps"
	BucketShortcuts Bucket = "shortcuts"
	BucketContacts  Bucket = "contacts"
	BucketCalendar  Bucket = "calendar"
	BucketFiles     Bucket = "files"
	BucketTools     Bucket = "tools"
	BucketWebsites  Bucket = "websites"
	BucketArticles  Bucket = "articles"
	BucketPlaces    Bucket = "places"
	BucketActions   Bucket = "actions" // generic text actions, not filterable
)

// AllBuckets lists every bucket in declaration order
var AllBuckets = []Bucket{
	BucketApps, BucketShortcuts, BucketContacts, BucketCalendar, BucketFiles,
	BucketTools, BucketWebsites, BucketArticles, BucketPlaces, BucketActions,
}

// ActionType is the side effect an ActionResult triggers when executed
type ActionType string

const (
	ActionCall            ActionType = "call"
	ActionMessage         ActionType = "message"
	ActionCreateContact   ActionType = "createContact"
	ActionEmail           ActionType = "email"
	ActionScheduleEvent   ActionType = "scheduleEvent"
	ActionSetAlarm        ActionType = "setAlarm"
	ActionTimer           ActionType = "timer"
	ActionOpenURL         ActionType = "openUrl"
	ActionWebSearch       ActionType = "webSearch"
	ActionShare           ActionType = "share"
	ActionSearchFiles     ActionType = "searchFiles"
	ActionSearchWikipedia ActionType = "searchWikipedia"
	ActionSearchPlaces    ActionType = "searchPlaces"
)

// Result is one ranked search result. The set of implementations is closed:
// AppResult, ShortcutResult and ActionResult.
type Result interface {
	Score() float64
	Bucket() Bucket
	sealed()
}

// AppResult is an installed app matched by the query
type AppResult struct {
	App        AppInfo `json:"app"`
	TotalScore float64 `json:"total_score"`
}

func (r AppResult) Score() float64 { return r.TotalScore }
func (r AppResult) Bucket() Bucket  { return BucketApps }
func (AppResult) sealed()           {}

// ShortcutResult is an app shortcut matched by the query
type ShortcutResult struct {
	Key        string      `json:"key"` // ShortcutKey(owner, id)
	Shortcut   ShortcutRef `json:"shortcut"`
	AppLabel   string      `json:"app_label"`
	TotalScore float64     `json:"total_score"`
}

func (r ShortcutResult) Score() float64 { return r.TotalScore }
func (r ShortcutResult) Bucket() Bucket  { return BucketShortcuts }
func (ShortcutResult) sealed()           {}

// ActionResult is a heuristic action derived from the query text
type ActionResult struct {
	ID         string     `json:"id"`
	Source     Bucket     `json:"source"`
	Type       ActionType `json:"action_type"`
	Title      string     `json:"title"`
	Subtitle   string     `json:"subtitle,omitempty"`
	Value      string     `json:"value"`
	TotalScore float64    `json:"total_score"`
}

func (r ActionResult) Score() float64 { return r.TotalScore }
func (r ActionResult) Bucket() Bucket  { return r.Source }
func (ActionResult) sealed()           {}

// NewAction builds an ActionResult with id "<source>:<type>:<value>"
func NewAction(source Bucket, actionType ActionType, title, value, subtitle string, score float64) ActionResult {
	return ActionResult{
		ID:         string(source) + ":" + string(actionType) + ":" + value,
		Source:     source,
		Type:       actionType,
		Title:      title,
		Subtitle:   subtitle,
		Value:      value,
		TotalScore: score,
	}
}

// Validate checks the score range of a result
func Validate(r Result) error {
	if r == nil {
		return ErrNilResult
	}
	if s := r.Score(); s < 0 || s > 1 {
		return ErrInvalidScore
	}
	return nil
}

// SearchResults is the merged result envelope, one list per bucket
type SearchResults struct {
	Apps      []AppResult      `json:"apps"`
	Shortcuts []ShortcutResult `json:"shortcuts"`
	Contacts  []ActionResult   `json:"contacts"`
	Calendar  []ActionResult   `json:"calendar"`
	Files     []ActionResult   `json:"files"`
	Tools     []ActionResult   `json:"tools"`
	Websites  []ActionResult   `json:"websites"`
	Articles  []ActionResult   `json:"articles"`
	Places    []ActionResult   `json:"places"`
	Actions   []ActionResult   `json:"actions"`
}

// EmptyResults returns a SearchResults with every bucket set to an empty list
func EmptyResults() SearchResults {
	return SearchResults{
		Apps:      []AppResult{},
		Shortcuts: []ShortcutResult{},
		Contacts:  []ActionResult{},
		Calendar:  []ActionResult{},
		Files:     []ActionResult{},
		Tools:     []ActionResult{},
		Websites:  []ActionResult{},
		Articles:  []ActionResult{},
		Places:    []ActionResult{},
		Actions:   []ActionResult{},
	}
}

// ActionBucket returns the action list stored under b, or nil for the apps and shortcuts buckets
func (r SearchResults) ActionBucket(b Bucket) []ActionResult {
	if p := r.actionSlot(b); p != nil {
		return *p
	}
	return nil
}

// SetActionBucket replaces the action list stored under b.
// It reports false when b does not hold actions.
func (r *SearchResults) SetActionBucket(b Bucket, actions []ActionResult) bool {
	p := r.actionSlot(b)
	if p == nil {
		return false
	}
	*p = actions
	return true
}

func (r *SearchResults) actionSlot(b Bucket) *[]ActionResult {
	switch b {
	case BucketContacts:
		return &r.Contacts
	case BucketCalendar:
		return &r.Calendar
	case BucketFiles:
		return &r.Files
	case BucketTools:
		return &r.Tools
	case BucketWebsites:
		return &r.Websites
	case BucketArticles:
		return &r.Articles
	case BucketPlaces:
		return &r.Places
	case BucketActions:
		return &r.Actions
	}
	return nil
}

// Len returns the number of entries in bucket b
func (r SearchResults) Len(b Bucket) int {
	switch b {
	case BucketApps:
		return len(r.Apps)
	case BucketShortcuts:
		return len(r.Shortcuts)
	}
	return len(r.ActionBucket(b))
}

// Total returns the number of entries across all buckets
func (r SearchResults) Total() int {
	n := 0
	for _, b := range AllBuckets {
		n += r.Len(b)
	}
	return n
}

// First returns the first entry of bucket b, or nil when it is empty
func (r SearchResults) First(b Bucket) Result {
	switch b {
	case BucketApps:
		if len(r.Apps) > 0 {
			return r.Apps[0]
		}
		return nil
	case BucketShortcuts:
		if len(r.Shortcuts) > 0 {
			return r.Shortcuts[0]
		}
		return nil
	}
	if actions := r.ActionBucket(b); len(actions) > 0 {
		return actions[0]
	}
	return nil
}

// FindAction looks an action up by id across all action buckets
func (r SearchResults) FindAction(id string) (ActionResult, bool) {
	for _, b := range AllBuckets {
		for _, a := range r.ActionBucket(b) {
			if a.ID == id {
				return a, true
			}
		}
	}
	return ActionResult{}, false
}

// Clone returns a copy that shares no slices with r
func (r SearchResults) Clone() SearchResults {
	out := SearchResults{
		Apps:      slices.Clone(r.Apps),
		Shortcuts: slices.Clone(r.Shortcuts),
	}
	for _, b := range AllBuckets {
		out.SetActionBucket(b, slices.Clone(r.ActionBucket(b)))
	}
	return out
}

// Reversed returns a copy with every bucket in reverse order. Scores are untouched.
func (r SearchResults) Reversed() SearchResults {
	out := r.Clone()
	slices.Reverse(out.Apps)
	slices.Reverse(out.Shortcuts)
	for _, b := range AllBuckets {
		slices.Reverse(out.ActionBucket(b))
	}
	return out
}
