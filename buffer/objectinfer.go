package buffer

import (
	"container/list"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/tempoflow/tempo/events"
)

// knownHosts maps a URL host substring to the ObjectType it represents.
// Checked in order; the first match wins.
var knownHosts = []struct {
	substr string
	object events.ObjectType
}{
	{"github.com", events.ObjectRepository},
	{"gitlab.com", events.ObjectRepository},
	{"mail.google.com", events.ObjectEmail},
	{"outlook.", events.ObjectEmail},
}

var terminalTitleRe = regexp.MustCompile(`(?i)\b(bash|zsh|terminal|iterm|shell)\b`)

// ObjectInference resolves an (app, window_title, url) triple to an
// (object_type, object_id) pair, caching results in a task-local LRU —
// task-local and not a global singleton, per spec.md §9's
// no-process-wide-singleton design note. The cache shape mirrors the
// small bounded caches in vecbridge/horosembed (fixed capacity, evict
// oldest), sized for amortizing regex work rather than long-term storage.
type ObjectInference struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type inferenceEntry struct {
	key        string
	objectType events.ObjectType
	objectID   string
}

// NewObjectInference creates an inference cache with the given capacity.
func NewObjectInference(capacity int) *ObjectInference {
	if capacity <= 0 {
		capacity = 256
	}
	return &ObjectInference{capacity: capacity, ll: list.New(), items: make(map[string]*list.Element)}
}

// Infer resolves the object for a raw event's context.
func (o *ObjectInference) Infer(app, windowTitle, rawURL string) (events.ObjectType, string) {
	key := app + "\x00" + windowTitle + "\x00" + rawURL
	o.mu.Lock()
	if el, ok := o.items[key]; ok {
		o.ll.MoveToFront(el)
		e := el.Value.(*inferenceEntry)
		o.mu.Unlock()
		return e.objectType, e.objectID
	}
	o.mu.Unlock()

	objType, objID := infer(app, windowTitle, rawURL)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ll.Len() >= o.capacity {
		oldest := o.ll.Back()
		if oldest != nil {
			o.ll.Remove(oldest)
			delete(o.items, oldest.Value.(*inferenceEntry).key)
		}
	}
	el := o.ll.PushFront(&inferenceEntry{key: key, objectType: objType, objectID: objID})
	o.items[key] = el
	return objType, objID
}

func infer(app, windowTitle, rawURL string) (events.ObjectType, string) {
	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil {
			for _, h := range knownHosts {
				if strings.Contains(u.Host, h.substr) {
					return h.object, u.Host
				}
			}
			return events.ObjectWebpage, u.Host
		}
	}
	if terminalTitleRe.MatchString(windowTitle) {
		return events.ObjectTerminal, windowTitle
	}
	if windowTitle != "" && looksLikeFile(windowTitle) {
		return events.ObjectFile, windowTitle
	}
	if windowTitle != "" {
		return events.ObjectWindow, windowTitle
	}
	return events.ObjectApp, app
}

var fileExtRe = regexp.MustCompile(`\.[A-Za-z0-9]{1,8}$`)

func looksLikeFile(title string) bool {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return false
	}
	return fileExtRe.MatchString(fields[0])
}
