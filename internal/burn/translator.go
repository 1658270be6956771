package burn

import (
	"fmt"
	"strings"

	"github.com/burnmedia/burnmedia/internal/fsimage"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// Messages is the phrase table used to describe progress. Progress and
// AddingFile are format strings taking the percent and the file name.
type Messages struct {
	Progress   string
	AddingFile string
	Actions    map[recorder.WriteAction]string
	Phases     map[Phase]string
}

// DefaultMessages returns the English phrase table.
func DefaultMessages() Messages {
	return Messages{
		Progress:   "Progress: %d%%",
		AddingFile: "Adding \"%s\" to image...",
		Actions: map[recorder.WriteAction]string{
			recorder.ActionValidatingMedia:      "Validating current media...",
			recorder.ActionFormattingMedia:      "Formatting media...",
			recorder.ActionInitializingHardware: "Initializing hardware...",
			recorder.ActionCalibratingPower:     "Optimizing laser intensity...",
			recorder.ActionWritingData:          "Writing data...",
			recorder.ActionFinalization:         "Finalizing writing...",
			recorder.ActionCompleted:            "Completed!",
			recorder.ActionVerifying:            "Verifying...",
		},
		Phases: map[Phase]string{
			Idle:               "",
			BuildingFileSystem: "Creating file system...",
			Writing:            "Writing data...",
			Completed:          "Finished Burning Disc!",
			Failed:             "Error Burning Disc!",
			Cancelled:          "Burn cancelled.",
		},
	}
}

// Override returns a copy of m with phrases replaced from kv. Keys are
// "progress", "adding_file", write action names like "calibrating-power"
// and phase names like "completed". Unknown keys are ignored.
func (m Messages) Override(kv map[string]string) Messages {
	out := Messages{
		Progress:   m.Progress,
		AddingFile: m.AddingFile,
		Actions:    make(map[recorder.WriteAction]string, len(m.Actions)),
		Phases:     make(map[Phase]string, len(m.Phases)),
	}
	for k, v := range m.Actions {
		out.Actions[k] = v
	}
	for k, v := range m.Phases {
		out.Phases[k] = v
	}

	for key, value := range kv {
		key = strings.ReplaceAll(strings.ToLower(key), "_", "-")
		switch key {
		case "progress":
			out.Progress = value
			continue
		case "adding-file":
			out.AddingFile = value
			continue
		}
		for a := recorder.ActionValidatingMedia; a <= recorder.ActionVerifying; a++ {
			if a.String() == key {
				out.Actions[a] = value
			}
		}
		for p, name := range phaseNames {
			if name == key {
				out.Phases[p] = value
			}
		}
	}
	return out
}

// Translator maps raw events to status messages using a phrase table.
type Translator struct {
	messages Messages
}

// NewTranslator returns a translator over messages.
func NewTranslator(messages Messages) *Translator {
	return &Translator{messages: messages}
}

// Writing translates a write engine event. The writing-data action shows
// the percentage; every other action uses its phrase.
func (t *Translator) Writing(ev recorder.WriteEvent) (message string, percent int) {
	percent = WritePercent(ev.StartSector, ev.SectorCount, ev.LastWrittenSector)
	if ev.CurrentAction == recorder.ActionWritingData {
		return fmt.Sprintf(t.messages.Progress, percent), percent
	}
	if phrase, ok := t.messages.Actions[ev.CurrentAction]; ok {
		return phrase, percent
	}
	return t.messages.Phases[Writing], percent
}

// Building translates image builder progress.
func (t *Translator) Building(p fsimage.Progress) (message string, percent int) {
	return fmt.Sprintf(t.messages.AddingFile, p.CurrentFile), p.Percent()
}

// Phase returns the phrase announcing phase.
func (t *Translator) Phase(phase Phase) string {
	return t.messages.Phases[phase]
}
