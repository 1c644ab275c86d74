package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// snapshotScript walks the visible DOM, tags interactive elements with a
// data-ai-id attribute and returns a JSON document describing the page.
// It takes a single argument: the list of attribute names to capture.
const snapshotScript = `(includeAttrs) => {
	let idCounter = 1;
	const interactiveTags = new Set(['a', 'button', 'input', 'textarea', 'select', 'details', 'summary', 'option']);
	const interactiveRoles = new Set(['button', 'link', 'checkbox', 'radio', 'menuitem', 'tab', 'textbox', 'combobox', 'option', 'switch', 'searchbox']);
	const skipTags = new Set(['script', 'style', 'svg', 'path', 'noscript', 'template']);
	const attrs = includeAttrs || [];

	document.querySelectorAll('[data-ai-id]').forEach(el => el.removeAttribute('data-ai-id'));

	function cleanText(text) {
		if (!text) return '';
		const res = text.replace(/\s+/g, ' ').trim();
		return res.length > 100 ? res.slice(0, 100) + '...' : res;
	}

	function isVisible(el) {
		if (!el || !el.getBoundingClientRect) return false;
		if (el.getAttribute('aria-hidden') === 'true') return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const inViewport = rect.top < window.innerHeight && rect.bottom > 0 &&
			rect.left < window.innerWidth && rect.right > 0;
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none' &&
			style.opacity !== '0' && inViewport;
	}

	function isInteractive(el) {
		const tag = el.tagName.toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const tabIndex = el.getAttribute('tabindex');
		return interactiveTags.has(tag) || interactiveRoles.has(role) ||
			(tabIndex !== null && tabIndex !== '-1') ||
			el.onclick != null || el.isContentEditable;
	}

	function ownText(el) {
		const tag = el.tagName.toLowerCase();
		let label = cleanText(el.innerText || el.textContent || '');
		if (!label) label = cleanText(el.getAttribute('aria-label') || '');
		if (!label && (tag === 'input' || tag === 'textarea')) {
			label = cleanText(el.getAttribute('placeholder') || '');
		}
		return label;
	}

	function collectAttrs(el) {
		const out = [];
		for (const name of attrs) {
			let value = name === 'value' && 'value' in el ? el.value : el.getAttribute(name);
			value = cleanText(value == null ? '' : String(value));
			if (value) out.push({name: name, value: value});
		}
		return out;
	}

	const elements = [];

	function traverse(node, depth) {
		if (!node || depth > 30) return;
		if (node.nodeType === Node.TEXT_NODE) {
			const text = cleanText(node.textContent);
			if (text.length > 2) elements.push({index: 0, text: text, depth: depth});
			return;
		}
		if (node.nodeType !== Node.ELEMENT_NODE) return;

		const el = node;
		const tag = el.tagName.toLowerCase();
		if (skipTags.has(tag) || !isVisible(el)) return;

		if (isInteractive(el)) {
			const id = idCounter++;
			el.setAttribute('data-ai-id', String(id));
			elements.push({index: id, tag: tag, attrs: collectAttrs(el), text: ownText(el), depth: depth});
			return;
		}
		for (const child of el.childNodes) traverse(child, depth + 1);
	}

	traverse(document.body, 0);

	const scrollY = window.scrollY || 0;
	const total = Math.max(document.documentElement.scrollHeight, document.body ? document.body.scrollHeight : 0);
	return JSON.stringify({
		url: window.location.href,
		title: document.title,
		pixels_above: Math.round(scrollY),
		pixels_below: Math.max(0, Math.round(total - window.innerHeight - scrollY)),
		elements: elements,
	});
}`

// scriptResult is the decoded return value of snapshotScript.
type scriptResult struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PixelsAbove int       `json:"pixels_above"`
	PixelsBelow int       `json:"pixels_below"`
	Elements    []Element `json:"elements"`
}

func decodeScriptResult(raw any) (*scriptResult, error) {
	str, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected string from snapshot script, got %T", raw)
	}
	var res scriptResult
	if err := json.UnmarshalFromString(str, &res); err != nil {
		return nil, fmt.Errorf("decode snapshot script result: %w", err)
	}
	return &res, nil
}

func (r *scriptResult) toSnapshot() *Snapshot {
	return &Snapshot{
		URL:         r.URL,
		Title:       r.Title,
		Elements:    r.Elements,
		PixelsAbove: r.PixelsAbove,
		PixelsBelow: r.PixelsBelow,
	}
}

// clickScript clicks the receiver, walking up to the nearest clickable
// ancestor and preferring the input inside a wrapping label.
const clickScript = `function() {
	if (this.scrollIntoViewIfNeeded) {
		this.scrollIntoViewIfNeeded();
	} else if (this.scrollIntoView) {
		this.scrollIntoView({ block: "center", inline: "center" });
	}

	const isClickable = (el) => {
		if (!el) return false;
		const tag = (el.tagName || "").toLowerCase();
		const role = (el.getAttribute && (el.getAttribute("role") || "").toLowerCase()) || "";
		if (tag === "button" || tag === "a" || tag === "label") return true;
		if (tag === "input") {
			const type = (el.type || "").toLowerCase();
			if (["button", "submit", "radio", "checkbox"].includes(type)) return true;
		}
		return ["button", "link", "radio", "checkbox"].includes(role);
	};

	const clickFromLabel = (label) => {
		if (!label) return false;
		const input = label.querySelector("input[type='radio'],input[type='checkbox']");
		if (input) { input.click(); return true; }
		return false;
	};

	let el = this;
	if (el.closest && clickFromLabel(el.closest("label"))) return;
	for (let i = 0; i < 5 && el; i++) {
		if (isClickable(el)) { el.click(); return; }
		el = el.parentElement;
	}
	this.click();
}`

// inputScriptFormat sets the value of the receiver and fires input events.
// The single verb receives a JSON-encoded string literal.
const inputScriptFormat = `function() {
	if (this.scrollIntoViewIfNeeded) this.scrollIntoViewIfNeeded();
	this.focus();
	this.value = %s;
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`
