package browserworker

import (
	"context"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// dispatch performs one attempt of one Action against the driver: resolve a
// target if the Action kind needs one, then invoke the matching Driver
// method. Target resolution happens fresh on every attempt since the page
// may have changed between retries (spec §4.1).
func (w *Worker) dispatch(ctx context.Context, action automation.Action) (automation.Result, error) {
	switch action.Kind {
	case automation.ActionNavigate:
		if err := w.driver.Navigate(ctx, action.URL); err != nil {
			return automation.Result{}, errkind.Newf(errkind.Navigation, "navigate %s: %v", action.URL, err)
		}
		return automation.Result{Success: true, ObservedURL: w.driver.CurrentURL()}, nil

	case automation.ActionWait:
		if err := w.driver.WaitFor(ctx, action.Predicate); err != nil {
			return automation.Result{}, errkind.Newf(errkind.Timeout, "wait: %v", err)
		}
		return automation.Result{Success: true}, nil

	case automation.ActionClick:
		el, cand, err := w.resolve(ctx, action)
		if err != nil {
			return automation.Result{}, err
		}
		if err := w.driver.Click(ctx, el); err != nil {
			return automation.Result{}, errkind.Newf(errkind.Driver, "click: %v", err)
		}
		return automation.Result{Success: true, FinalTargetUsed: &cand, ObservedURL: w.driver.CurrentURL()}, nil

	case automation.ActionFill:
		el, cand, err := w.resolve(ctx, action)
		if err != nil {
			return automation.Result{}, err
		}
		if err := w.driver.Fill(ctx, el, action.Value); err != nil {
			return automation.Result{}, errkind.Newf(errkind.Driver, "fill: %v", err)
		}
		return automation.Result{Success: true, FinalTargetUsed: &cand, TargetFieldType: el.Type, TargetLabel: elementLabel(el)}, nil

	case automation.ActionSelect:
		el, cand, err := w.resolve(ctx, action)
		if err != nil {
			return automation.Result{}, err
		}
		if err := w.driver.Select(ctx, el, action.Option); err != nil {
			return automation.Result{}, errkind.Newf(errkind.Driver, "select: %v", err)
		}
		return automation.Result{Success: true, FinalTargetUsed: &cand}, nil

	case automation.ActionExtract:
		el, cand, err := w.resolve(ctx, action)
		if err != nil {
			return automation.Result{}, err
		}
		text, err := w.driver.Extract(ctx, el)
		if err != nil {
			return automation.Result{}, errkind.Newf(errkind.Driver, "extract: %v", err)
		}
		return automation.Result{Success: true, FinalTargetUsed: &cand, ObservedURL: text}, nil

	case automation.ActionScroll:
		var el *Element
		if len(action.Targets) > 0 {
			e, _, err := w.resolve(ctx, action)
			if err != nil {
				return automation.Result{}, err
			}
			el = &e
		}
		if err := w.driver.Scroll(ctx, action.Direction, el); err != nil {
			return automation.Result{}, errkind.Newf(errkind.Driver, "scroll: %v", err)
		}
		return automation.Result{Success: true}, nil

	case automation.ActionAssert:
		_, cand, err := w.resolve(ctx, action)
		if err != nil {
			return automation.Result{}, err
		}
		return automation.Result{Success: true, FinalTargetUsed: &cand}, nil

	default:
		return automation.Result{}, errkind.Newf(errkind.Driver, "unknown action kind %q", action.Kind)
	}
}

// resolve snapshots the page and resolves the Action's first Target against
// it, returning TargetNotFound when no candidate matches.
func (w *Worker) resolve(ctx context.Context, action automation.Action) (Element, automation.Candidate, error) {
	if len(action.Targets) == 0 {
		return Element{}, automation.Candidate{}, errkind.New(errkind.Driver, "action has no target")
	}
	elems, err := w.driver.Snapshot(ctx)
	if err != nil {
		return Element{}, automation.Candidate{}, errkind.Newf(errkind.Driver, "snapshot: %v", err)
	}
	el, cand, log, ok := resolveTarget(elems, action.Targets[0])
	if !ok {
		return Element{}, automation.Candidate{}, errkind.New(errkind.TargetNotFound, "no candidate matched").
			WithContext("attempts", log)
	}
	return el, cand, nil
}
