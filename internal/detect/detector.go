package detect

import (
	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/rules"
)

// Detector turns gazette documents into movement events.
type Detector struct {
	gate     *Gate
	subjects *SubjectExtractor
	resolver *Resolver
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*Detector)

func WithLogger(l *zap.Logger) Option { return func(d *Detector) { d.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(d *Detector) { d.metrics = m } }

// WithProximity sets the reason-vocabulary window around the subject name.
func WithProximity(n int) Option {
	return func(d *Detector) { d.resolver.proximity = n }
}

// NewDetector wires the gate, subject cascade and resolver from one rule set.
// rec is the name-recognizer fallback; construct it once and share it.
func NewDetector(r rules.Rules, rec Recognizer, opts ...Option) *Detector {
	d := &Detector{
		gate:     NewGate(r),
		subjects: NewSubjectExtractor(r, rec),
		resolver: NewResolver(r, DefaultProximity),
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect segments one document and returns the events of every retained act.
// Acts whose date cannot be established are dropped.
func (d *Detector) Detect(doc model.Document) []model.Event {
	organ := initialOrgan(doc.Text, doc.Organ)
	var out []model.Event

	for block := range Segment(doc.Text) {
		if o, ok := headerOrgan(block); ok {
			organ = o
		}

		verdict := d.gate.Evaluate(block)
		d.metrics.ObserveBlock(string(verdict))
		var typ model.EventType
		switch verdict {
		case VerdictEntry:
			typ = model.Entry
		case VerdictExit:
			typ = model.Exit
		default:
			continue
		}

		subj := d.subjects.Extract(block)
		res, ok := d.resolver.Resolve(block, typ, subj, organ)
		if !ok {
			d.metrics.ObserveBlock("unconfirmed")
			continue
		}

		date := EffectiveDate(block)
		if date == "" {
			date = doc.Date
		}
		ev, err := Build(Act{
			Type:          typ,
			Organ:         organ,
			Subject:       subj,
			Resolution:    res,
			Date:          date,
			ReferenceDate: ReferenceDate(block),
			Role:          ExtractRole(block),
			Source:        doc.Ref,
		})
		if err != nil {
			d.metrics.ObserveParseFailure()
			d.logger.Debug("act dropped", zap.String("source", doc.Ref), zap.Error(err))
			continue
		}
		d.metrics.ObserveEvent(string(ev.Type), ev.Confidence)
		d.logger.Debug("act detected",
			zap.String("source", doc.Ref),
			zap.String("name", ev.Name),
			zap.String("type", string(ev.Type)),
			zap.String("pattern", subj.Pattern),
			zap.String("confidence", ev.Confidence),
		)
		out = append(out, ev)
	}
	return out
}
