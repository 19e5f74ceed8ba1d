package orchestration

import "github.com/koscakluka/ema-interview/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts RunOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.StateChanged:
			if opts.onStateChanged != nil {
				opts.onStateChanged(State(typedEvent.From), State(typedEvent.To))
			}
		case events.PromptSpoken:
			if opts.onPrompt != nil {
				opts.onPrompt(typedEvent.Text)
			}
		case events.TranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.ReplyGenerated:
			if opts.onReply != nil {
				opts.onReply(typedEvent.Text)
			}
		}
	}
}

func (o *Orchestrator) emit(event events.Event) {
	logger.Debug("interview event", "event.namespace", event.Kind().Namespace(), "event.kind", event.Kind())
	o.emitter(event)
	if o.eventHandler != nil {
		o.eventHandler(event)
	}
}
