package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html"

	"github.com/martinemde/agentic/agentloop"
)

const (
	browserViewHeader = "The format of the browser content is highly simplified; all formatting elements are stripped.\n" +
		"When choosing elements, please use the `id` number.\n\n"

	refAttr       = "data-agent-ref"
	settleTimeout = 5 * time.Second
)

// keptAttrs are copied onto every rendered element, in this order.
var keptAttrs = []string{"alt", "aria-label", "name", "title", "type", "role"}

// collectScript tags every visible candidate element with a ref and returns
// them as a JSON string. Candidates are grouped by kind in a fixed order.
const collectScript = `() => {
	document.querySelectorAll('[` + refAttr + `]').forEach(el => el.removeAttribute('` + refAttr + `'));
	const groups = ['input', 'textarea', 'a', 'button', 'img', 'div[role="button"], div[role="textbox"]'];
	const keep = ['alt', 'aria-label', 'name', 'title', 'type', 'role', 'value', 'placeholder'];
	const visible = el => {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
	};
	const out = [];
	let ref = 0;
	for (const sel of groups) {
		for (const el of document.querySelectorAll(sel)) {
			if (!visible(el)) continue;
			ref++;
			el.setAttribute('` + refAttr + `', String(ref));
			const attrs = {};
			for (const k of keep) {
				const v = k === 'value' ? el.value : el.getAttribute(k);
				if (v) attrs[k] = String(v);
			}
			out.push({ref: ref, tag: el.tagName.toLowerCase(), text: (el.innerText || '').replace(/\n/g, ' '), attrs: attrs});
		}
	}
	return JSON.stringify(out);
}`

// PageElement is one visible candidate element collected from the page.
type PageElement struct {
	Ref   int               `json:"ref"`
	Tag   string            `json:"tag"`
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
}

// RenderElements builds the simplified browser view. Images without alt text
// and links, buttons or divs without text are dropped; the rest are numbered
// from 1. The returned slice maps each id (index+1) to the element's ref.
func RenderElements(elems []PageElement) (string, []int) {
	var lines []string
	var refs []int
	for _, el := range elems {
		if el.Tag == "img" && el.Attrs["alt"] == "" {
			continue
		}
		if (el.Tag == "div" || el.Tag == "a" || el.Tag == "button") && el.Text == "" {
			continue
		}
		id := len(refs) + 1
		refs = append(refs, el.Ref)
		lines = append(lines, fmt.Sprintf("element id #%d: %s", id, renderTag(el, id)))
	}
	return strings.Join(lines, "\n"), refs
}

func renderTag(el PageElement, id int) string {
	var b strings.Builder
	b.WriteString("<" + el.Tag)

	names := append([]string(nil), keptAttrs...)
	if el.Tag == "input" {
		names = append(names, "value", "placeholder")
	}
	for _, name := range names {
		if v := el.Attrs[name]; v != "" {
			fmt.Fprintf(&b, ` %s="%s"`, name, html.EscapeString(v))
		}
	}
	fmt.Fprintf(&b, ` id="%d">%s</%s>`, id, html.EscapeString(el.Text), el.Tag)
	return b.String()
}

// Browser drives a Chromium instance through rod. The browser is launched on
// first use.
type Browser struct {
	headless bool
	logger   *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	refs     []int
}

// NewBrowser creates a Browser bundle.
func NewBrowser(headless bool, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{headless: headless, logger: logger.With("component", "browser")}
}

// Actions returns the browser actions.
func (b *Browser) Actions() []agentloop.Action {
	return []agentloop.Action{
		{
			Name:        "go_to_page",
			Description: "Navigate the page to a url.",
			Params:      []agentloop.Param{agentloop.Required("url")},
			Func:        b.goToPage,
		},
		{
			Name:        "click_element",
			Description: "Click an element with id `element_id_num`.",
			Params:      []agentloop.Param{agentloop.Required("element_id_num")},
			Func:        b.clickElement,
		},
		{
			Name:        "type_into_element",
			Description: "Type into an element with id `element_id_num`.",
			Params:      []agentloop.Param{agentloop.Required("element_id_num"), agentloop.Required("text")},
			Func:        b.typeIntoElement,
		},
		{
			Name:        "type_and_submit_into_element",
			Description: "Type into an element with id `element_id_num` and submit.",
			Params:      []agentloop.Param{agentloop.Required("element_id_num"), agentloop.Required("text")},
			Func:        b.typeAndSubmit,
		},
		{
			Name:        "wait",
			Description: "Wait for `seconds` seconds.",
			Params:      []agentloop.Param{agentloop.Required("seconds")},
			Func:        wait,
		},
	}
}

// Close shuts down the browser if it was launched.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	b.browser, b.page, b.launcher, b.refs = nil, nil, nil, nil
	return err
}

func (b *Browser) ensurePage(ctx context.Context) (*rod.Page, error) {
	if b.page != nil {
		return b.page.Context(ctx), nil
	}

	l := launcher.New().Leakless(true).Headless(b.headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}

	b.launcher, b.browser, b.page = l, browser, page
	b.logger.Debug("browser launched", "headless", b.headless)
	return page.Context(ctx), nil
}

// element resolves an id from the last rendered view.
func (b *Browser) element(ctx context.Context, args agentloop.Args) (*rod.Element, error) {
	id, ok := args.Int("element_id_num")
	if !ok {
		return nil, fmt.Errorf("element_id_num must be an integer, got %v", args["element_id_num"])
	}
	if b.page == nil || id < 1 || id > len(b.refs) {
		return nil, fmt.Errorf("no element with id %d in the current view", id)
	}
	sel := fmt.Sprintf(`[%s="%d"]`, refAttr, b.refs[id-1])
	el, err := b.page.Context(ctx).Timeout(settleTimeout).Element(sel)
	if err != nil {
		return nil, fmt.Errorf("element %d is no longer on the page: %w", id, err)
	}
	return el, nil
}

func (b *Browser) goToPage(ctx context.Context, args agentloop.Args) (any, error) {
	target, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	page, err := b.ensurePage(ctx)
	if err != nil {
		return nil, err
	}
	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", target, err)
	}
	return b.view(ctx, page)
}

func (b *Browser) clickElement(ctx context.Context, args agentloop.Args) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	el, err := b.element(ctx, args)
	if err != nil {
		return nil, err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("click: %w", err)
	}
	return b.view(ctx, b.page.Context(ctx))
}

func (b *Browser) typeIntoElement(ctx context.Context, args agentloop.Args) (any, error) {
	return b.typeText(ctx, args, false)
}

func (b *Browser) typeAndSubmit(ctx context.Context, args agentloop.Args) (any, error) {
	return b.typeText(ctx, args, true)
}

func (b *Browser) typeText(ctx context.Context, args agentloop.Args, submit bool) (any, error) {
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	el, err := b.element(ctx, args)
	if err != nil {
		return nil, err
	}
	if err := el.SelectAllText(); err != nil {
		b.logger.Debug("select all text failed", "error", err)
	}
	if err := el.Input(text); err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	if submit {
		if err := el.Type(input.Enter); err != nil {
			return nil, fmt.Errorf("submit: %w", err)
		}
	}
	return b.view(ctx, b.page.Context(ctx))
}

// view waits for the page to settle and renders it. Callers hold b.mu.
func (b *Browser) view(ctx context.Context, page *rod.Page) (any, error) {
	if err := page.Timeout(settleTimeout).WaitStable(500 * time.Millisecond); err != nil {
		b.logger.Debug("page did not settle", "error", err)
	}

	res, err := page.Timeout(settleTimeout).Eval(collectScript)
	if err != nil {
		return nil, fmt.Errorf("collect elements: %w", err)
	}
	var elems []PageElement
	if err := json.Unmarshal([]byte(res.Value.String()), &elems); err != nil {
		return nil, fmt.Errorf("decode elements: %w", err)
	}

	rendered, refs := RenderElements(elems)
	b.refs = refs
	b.logger.Debug("browser view rendered", "elements", len(refs))
	return map[string]any{"context": browserViewHeader + rendered}, nil
}

func wait(ctx context.Context, args agentloop.Args) (any, error) {
	secs, ok := args.Float("seconds")
	if !ok || secs < 0 {
		return nil, fmt.Errorf("seconds must be a non-negative number, got %v", args["seconds"])
	}

	t := time.NewTimer(time.Duration(secs * float64(time.Second)))
	defer t.Stop()
	select {
	case <-t.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
