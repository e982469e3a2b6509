// Package selector lets an operator confirm or narrow the resolved process
// set before sampling starts.
//
// The exchange is a small state machine so it can be driven without a
// console:
//
//	AskConfirm --yes--> Done (all candidates)
//	AskConfirm --no/anything else--> AskFilter
//	AskFilter  --no--> Done (empty: abort)
//	AskFilter  --pid list--> Done (candidates in the list)
//	AskFilter  --unparsable list--> AskConfirm
package selector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ja7ad/procsampler/pkg/sampler"
	"github.com/ja7ad/procsampler/pkg/system/util"
)

// State is the step the dialogue waits on.
type State int

const (
	AskConfirm State = iota
	AskFilter
	Done
)

func (s State) String() string {
	switch s {
	case AskConfirm:
		return "ask-confirm"
	case AskFilter:
		return "ask-filter"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	promptConfirm = "Sample these processes? [y/n]: "
	promptFilter  = "Abort with 'n', or enter the comma-separated pids to keep: "
)

// Dialogue is one confirmation exchange over a fixed candidate set.
type Dialogue struct {
	candidates sampler.Set
	state      State
	result     sampler.Set
}

// NewDialogue starts at AskConfirm.
func NewDialogue(candidates sampler.Set) *Dialogue {
	return &Dialogue{candidates: candidates, state: AskConfirm}
}

// State returns the current step.
func (d *Dialogue) State() State { return d.state }

// Prompt returns the question for the current state, or "" once Done.
func (d *Dialogue) Prompt() string {
	switch d.state {
	case AskConfirm:
		return promptConfirm
	case AskFilter:
		return promptFilter
	default:
		return ""
	}
}

// Result is the selected set. It is empty until Done, and empty after an
// abort.
func (d *Dialogue) Result() sampler.Set {
	if d.result == nil {
		return sampler.Set{}
	}
	return d.result
}

// Answer feeds one line of operator input and returns notes to show them.
// Answers after Done are ignored.
func (d *Dialogue) Answer(input string) []string {
	input = strings.TrimSpace(input)

	switch d.state {
	case AskConfirm:
		if isYes(input) {
			d.finish(d.candidates)
			return nil
		}
		d.state = AskFilter
		return nil

	case AskFilter:
		if isNo(input) {
			d.finish(sampler.Set{})
			return []string{"aborted, nothing will be sampled"}
		}
		pids, err := util.ParsePIDs(input)
		if err != nil {
			d.state = AskConfirm
			return []string{fmt.Sprintf("invalid pid list: %v", err)}
		}
		kept, missing := d.candidates.Keep(pids)
		d.finish(kept)

		var notes []string
		for _, pid := range missing {
			notes = append(notes, fmt.Sprintf("pid %d is not among the candidates, ignored", pid))
		}
		return notes
	}
	return nil
}

func (d *Dialogue) finish(s sampler.Set) {
	d.result = s
	d.state = Done
}

// Listing renders one line per candidate, ordered by pid.
func Listing(candidates sampler.Set) string {
	var b strings.Builder
	for _, h := range candidates.Sorted() {
		fmt.Fprintf(&b, "PID: %d PPID: %d NAME: %s STATUS: %s\n", h.PID, h.PPID, h.Name, h.Status)
	}
	return b.String()
}

// Confirm shows the candidates on w and runs the dialogue on lines read from
// r. End of input aborts (empty set). Read or write failures are returned as
// errors, and so is ctx's error when it ends first; the blocked read is then
// left behind and finishes when r does.
func Confirm(ctx context.Context, r io.Reader, w io.Writer, candidates sampler.Set) (sampler.Set, error) {
	type result struct {
		set sampler.Set
		err error
	}
	done := make(chan result, 1)
	go func() {
		set, err := converse(r, w, candidates)
		done <- result{set, err}
	}()

	select {
	case <-ctx.Done():
		return sampler.Set{}, ctx.Err()
	case res := <-done:
		return res.set, res.err
	}
}

func converse(r io.Reader, w io.Writer, candidates sampler.Set) (sampler.Set, error) {
	if _, err := io.WriteString(w, Listing(candidates)); err != nil {
		return nil, err
	}

	d := NewDialogue(candidates)
	sc := bufio.NewScanner(r)
	for d.State() != Done {
		if _, err := io.WriteString(w, d.Prompt()); err != nil {
			return nil, err
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("read answer: %w", err)
			}
			_, _ = io.WriteString(w, "\nno answer, aborting\n")
			return sampler.Set{}, nil
		}
		for _, n := range d.Answer(sc.Text()) {
			if _, err := fmt.Fprintln(w, n); err != nil {
				return nil, err
			}
		}
	}
	return d.Result(), nil
}

func isYes(s string) bool {
	s = strings.ToUpper(s)
	return s == "Y" || s == "YES"
}

func isNo(s string) bool {
	s = strings.ToUpper(s)
	return s == "N" || s == "NO"
}
