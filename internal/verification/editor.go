// Package verification implements the record editor behind the verification
// form: loading or creating a record, inline validation, debounced autosave,
// generating the winner message and publishing.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"prizedesk/internal/autosave"
	"prizedesk/internal/clock"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/types"
	"prizedesk/internal/validation"
)

var (
	// ErrNotEditing is returned when an operation needs a loaded record.
	ErrNotEditing = errors.New("no record is open for editing")
	// ErrInvalid is returned when field validation blocks an action.
	ErrInvalid = errors.New("record has invalid fields")
	// ErrIncomplete is returned when checklist items are still missing.
	ErrIncomplete = errors.New("record is incomplete")
)

// AutosaveKey is the notification key shared by all autosave messages.
const AutosaveKey = "autosave"

// Operator-facing messages.
const (
	msgSaving           = "جاري الحفظ..."
	msgSaved            = "تم الحفظ بنجاح."
	msgSaveFailed       = "خطأ في الحفظ!"
	msgLoadFailed       = "فشل في تحميل/إنشاء سجل. يرجى المحاولة مرة أخرى."
	msgFixBeforeKlisha  = "يرجى تصحيح الأخطاء في البيانات الأساسية قبل توليد الكليشة."
	msgKlishaMissing    = "لا يمكن توليد الكليشة. يرجى إكمال جميع خطوات التحقق وملء البيانات الأساسية المطلوبة: \n- "
	msgKlishaFailed     = "حدث خطأ أثناء توليد الكليشة. يرجى مراجعة البيانات وتصحيحها."
	msgKlishaPageError  = "فشل في توليد الكليشة. يرجى مراجعة البيانات والتأكد من اتصال الخادم."
	msgFixBeforePublish = "يرجى تصحيح الأخطاء في البيانات الأساسية قبل تأكيد النشر."
	msgPublishMissing   = "لا يمكن النشر. يرجى إكمال جميع البيانات وخطوات التحقق النهائية:\n- "
	msgPublished        = "تم تأكيد نشر الجائزة بنجاح! سيتم العودة إلى لوحة التحكم."
	msgPublishFailed    = "فشل في تأكيد النشر. يرجى المحاولة مرة أخرى."
)

// State is the editor lifecycle.
type State int

const (
	Idle       State = iota // nothing opened yet
	Loading                 // fetching or creating the record
	Editing                 // form is live; autosave state is reported separately
	Finalizing              // winner message generated and shown
	Published               // publish confirmed; leaving shortly
	LoadFailed              // terminal until Open is called again
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Editing:
		return "editing"
	case Finalizing:
		return "finalizing"
	case Published:
		return "published"
	case LoadFailed:
		return "error"
	default:
		return "unknown"
	}
}

// Backend is the part of the REST client the editor needs.
type Backend interface {
	CreateVerification(ctx context.Context) (types.Record, error)
	GetVerification(ctx context.Context, id string) (types.Record, error)
	UpdateVerification(ctx context.Context, id string, rec types.Record) (types.Record, error)
	GenerateKlisha(ctx context.Context, id string) (string, error)
}

// Readiness is the outcome of checking a record before generate or publish.
type Readiness struct {
	Errors  validation.FieldErrors
	Missing []string
}

// Ready reports whether nothing blocks the record.
func (r Readiness) Ready() bool { return r.Errors.OK() && len(r.Missing) == 0 }

// Check runs the field rules and the checklist against rec.
func Check(rec types.Record) Readiness {
	return Readiness{Errors: validation.Record(rec), Missing: validation.Missing(rec)}
}

// Options configures an Editor. Zero values fall back to defaults.
type Options struct {
	Clock         clock.Clock
	Notify        *notify.Queue
	Debounce      time.Duration
	SaveTimeout   time.Duration
	RedirectDelay time.Duration
	// OnRedirect is called once RedirectDelay has passed after publishing.
	OnRedirect func()
	Audit      *logging.AuditLogger
}

// Editor is the view-model of one verification form.
type Editor struct {
	api  Backend
	opts Options

	mu       sync.Mutex
	state    State
	record   types.Record
	isNew    bool
	errs     validation.FieldErrors
	message  string
	loadErr  error
	pageErr  string
	redirect clock.Timer

	saver *autosave.Controller[types.Record]
}

// NewEditor creates an editor. Call Open before editing.
func NewEditor(api Backend, opts Options) *Editor {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Notify == nil {
		opts.Notify = notify.NewQueue(opts.Clock, 3*time.Second)
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = time.Second
	}
	if opts.Audit == nil {
		opts.Audit = logging.Audit("")
	}

	e := &Editor{api: api, opts: opts, errs: validation.FieldErrors{}}
	e.saver = autosave.New(opts.Clock, autosave.Config[types.Record]{
		Delay:    opts.Debounce,
		Timeout:  opts.SaveTimeout,
		Save:     e.save,
		OnSaving: func() { e.opts.Notify.Put(AutosaveKey, msgSaving, notify.Info) },
		OnSaved:  func(types.Record) { e.opts.Notify.Put(AutosaveKey, msgSaved, notify.Success) },
		OnError:  func(error) { e.opts.Notify.Put(AutosaveKey, msgSaveFailed, notify.Error) },
	})
	return e
}

func (e *Editor) save(ctx context.Context, rec types.Record) (types.Record, error) {
	saved, err := e.api.UpdateVerification(ctx, rec.ID, rec)
	e.opts.Audit.Mutation(logging.AuditRecordUpdate, rec.ID, err)
	return saved, err
}

// Open loads the record with id, or creates an empty draft when id is empty.
// It is also the retry path after a load failure.
func (e *Editor) Open(ctx context.Context, id string) error {
	e.mu.Lock()
	e.state = Loading
	e.loadErr = nil
	e.pageErr = ""
	e.message = ""
	e.mu.Unlock()

	var (
		rec types.Record
		err error
	)
	if id != "" {
		rec, err = e.api.GetVerification(ctx, id)
	} else {
		rec, err = e.api.CreateVerification(ctx)
		e.opts.Audit.Mutation(logging.AuditRecordCreate, rec.ID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		logging.Get(logging.CategoryVerification).Error("open %q failed: %v", id, err)
		e.state = LoadFailed
		e.loadErr = err
		e.pageErr = msgLoadFailed
		e.record = types.Record{}.WithDefaults()
		return fmt.Errorf("open verification: %w", err)
	}

	e.record = rec.WithDefaults()
	e.isNew = id == ""
	e.errs = validation.Record(e.record)
	e.state = Editing
	e.saver.Reset(e.record)
	logging.Verification("opened %s (new=%v)", e.record.ID, e.isNew)
	return nil
}

// Set updates one field, re-runs validation and schedules an autosave.
func (e *Editor) Set(field types.Field, value any) error {
	e.mu.Lock()
	if e.state != Editing {
		e.mu.Unlock()
		return ErrNotEditing
	}
	next := e.record
	if err := next.Set(field, value); err != nil {
		e.mu.Unlock()
		return err
	}
	e.record = next
	e.errs = validation.Record(next)
	e.mu.Unlock()

	e.saver.Schedule(next)
	return nil
}

// Save writes the current draft now instead of waiting for the debounce.
func (e *Editor) Save(ctx context.Context) error {
	if _, err := e.current(Editing, Finalizing); err != nil {
		return err
	}
	if _, err := e.saver.Flush(ctx); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// GenerateMessage persists the record and fetches the winner message. Nothing
// is sent when validation or the checklist blocks it.
func (e *Editor) GenerateMessage(ctx context.Context) (string, error) {
	rec, err := e.current(Editing, Finalizing)
	if err != nil {
		return "", err
	}
	if err := e.gate(rec, msgFixBeforeKlisha, msgKlishaMissing); err != nil {
		return "", err
	}

	if _, err := e.saver.Flush(ctx); err != nil {
		return "", e.klishaFailed(err)
	}
	msg, err := e.api.GenerateKlisha(ctx, rec.ID)
	e.opts.Audit.Mutation(logging.AuditKlishaGenerate, rec.ID, err)
	if err != nil {
		return "", e.klishaFailed(err)
	}

	e.mu.Lock()
	e.message = msg
	e.pageErr = ""
	e.state = Finalizing
	e.mu.Unlock()
	logging.Verification("generated message for %s", rec.ID)
	return msg, nil
}

func (e *Editor) klishaFailed(err error) error {
	e.mu.Lock()
	e.pageErr = msgKlishaPageError
	e.mu.Unlock()
	e.opts.Notify.Push(msgKlishaFailed, notify.Error)
	return fmt.Errorf("generate message: %w", err)
}

// DismissMessage closes the generated message and returns to editing.
func (e *Editor) DismissMessage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Finalizing {
		e.state = Editing
	}
}

// ConfirmPublish marks the record completed and published, then schedules
// OnRedirect.
func (e *Editor) ConfirmPublish(ctx context.Context) error {
	rec, err := e.current(Editing, Finalizing)
	if err != nil {
		return err
	}
	if err := e.gate(rec, msgFixBeforePublish, msgPublishMissing); err != nil {
		return err
	}

	rec.Status = types.StatusCompleted
	rec.PrizePublishedOnGroup = true
	e.saver.Schedule(rec)
	_, err = e.saver.Flush(ctx)
	e.opts.Audit.Mutation(logging.AuditRecordPublish, rec.ID, err)
	if err != nil {
		e.opts.Notify.Push(msgPublishFailed, notify.Error)
		return fmt.Errorf("publish: %w", err)
	}

	e.saver.Stop()
	e.mu.Lock()
	e.record = rec
	e.state = Published
	e.message = ""
	if e.opts.OnRedirect != nil {
		e.redirect = e.opts.Clock.AfterFunc(e.opts.RedirectDelay, e.opts.OnRedirect)
	}
	e.mu.Unlock()

	e.opts.Notify.Push(msgPublished, notify.Success)
	logging.Verification("published %s", rec.ID)
	return nil
}

// gate blocks an action on invalid fields or missing checklist items and
// tells the operator why.
func (e *Editor) gate(rec types.Record, invalidMsg, missingPrefix string) error {
	rd := Check(rec)
	if !rd.Errors.OK() {
		e.mu.Lock()
		e.errs = rd.Errors
		e.mu.Unlock()
		e.opts.Notify.Push(invalidMsg, notify.Error)
		return ErrInvalid
	}
	if len(rd.Missing) > 0 {
		e.opts.Notify.Push(missingPrefix+strings.Join(rd.Missing, "\n- "), notify.Error)
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(rd.Missing, ", "))
	}
	return nil
}

func (e *Editor) current(allowed ...State) (types.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range allowed {
		if e.state == s {
			return e.record, nil
		}
	}
	return types.Record{}, ErrNotEditing
}

// Close stops autosave and any pending redirect. A save already in flight
// finishes in the background.
func (e *Editor) Close() {
	e.saver.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.redirect != nil {
		e.redirect.Stop()
		e.redirect = nil
	}
}

// Wait blocks until background saves have finished.
func (e *Editor) Wait() { e.saver.Wait() }

// State returns the lifecycle state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SaveState returns the autosave state of the form.
func (e *Editor) SaveState() autosave.State { return e.saver.State() }

// Record returns the current draft.
func (e *Editor) Record() types.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

// IsNew reports whether the record was created by Open.
func (e *Editor) IsNew() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isNew
}

// FieldErrors returns the inline validation messages.
func (e *Editor) FieldErrors() validation.FieldErrors {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(validation.FieldErrors, len(e.errs))
	for k, v := range e.errs {
		out[k] = v
	}
	return out
}

// Message returns the generated winner message, if any.
func (e *Editor) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

// LoadErr returns the error that put the editor into LoadFailed.
func (e *Editor) LoadErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// PageError returns the banner text shown above the form, if any.
func (e *Editor) PageError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageErr
}

// Notifications exposes the editor's notification queue.
func (e *Editor) Notifications() *notify.Queue { return e.opts.Notify }
