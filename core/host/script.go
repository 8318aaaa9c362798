package host

// Scripts run in the page as function expressions. Each returns a string,
// JSON where the result is structured, so both drivers can read it the
// same way. None of them modifies the document.

// findScroller walks up from the first turn element to the nearest
// ancestor that scrolls vertically and overflows, falling back to the
// document scrolling element.
const findScroller = `function findScroller(selectors) {
  let first = null;
  for (const s of selectors) {
    try { first = document.querySelector(s); } catch (e) { continue; }
    if (first) break;
  }
  let el = first ? first.parentElement : null;
  while (el && el !== document.body && el !== document.documentElement) {
    const oy = getComputedStyle(el).overflowY;
    if ((oy === 'auto' || oy === 'scroll') && el.scrollHeight > el.clientHeight) return el;
    el = el.parentElement;
  }
  return document.scrollingElement || document.documentElement;
}`

const turnsScript = `(selectors, visibleOnly) => {
  for (const s of selectors) {
    let list;
    try { list = Array.from(document.querySelectorAll(s)); } catch (e) { continue; }
    if (list.length === 0) continue;
    if (visibleOnly) list = list.filter(el => el.offsetParent !== null);
    return JSON.stringify(list.map(el => el.outerHTML));
  }
  return '[]';
}`

const metricsScript = `(selectors) => {
  ` + findScroller + `
  const el = findScroller(selectors);
  return JSON.stringify({
    top: el.scrollTop,
    height: el.scrollHeight,
    clientHeight: el.clientHeight,
    viewportHeight: window.innerHeight,
  });
}`

const scrollToScript = `(selectors, top) => {
  ` + findScroller + `
  findScroller(selectors).scrollTop = top;
  return 'ok';
}`

const scrollByScript = `(selectors, delta) => {
  ` + findScroller + `
  const el = findScroller(selectors);
  el.scrollTop = el.scrollTop + delta;
  return 'ok';
}`

const lookupScript = `(selector, property) => {
  let el = null;
  try { el = document.querySelector(selector); } catch (e) { return ''; }
  if (!el) return '';
  const v = el[property];
  return v == null ? '' : String(v);
}`

const titleScript = `() => document.title || ''`
