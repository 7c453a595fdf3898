package tree

const helpMarkdown = `# histree

## Moving

| Key | Action |
| --- | --- |
| ↑ ↓ / k j | move the cursor |
| PgUp PgDn | move a page |
| g G | first / last row |
| mouse wheel | scroll |

## Selecting

| Key | Action |
| --- | --- |
| space / x / click | toggle the row and make it the anchor |
| S / shift+click | set every row from the anchor to the cursor |
| shift+↑ shift+↓ | move, growing or shrinking the range from the anchor |
| a | select every visible row |
| A | clear the selection |
| d | delete every visit to the selected URLs |

## Searching

| Key | Action |
| --- | --- |
| / | focus the search box |
| ↑ ↓ | recent searches, or suggestions when shown |
| Tab | accept the suggestion |
| Enter | apply and remember the search |
| ⎋ | leave the box; in the tree, clear the search |

## History

| Key | Action |
| --- | --- |
| [ ] | move the window back / forward one day |
| c | collapse repeated visits to the same URL |
| r | reload from the browser |
| q | quit |
`

// renderHelp returns the key reference, styled when a renderer is available.
func (m Model) renderHelp() string {
	if m.mdRenderer == nil {
		return helpMarkdown
	}
	out, err := m.mdRenderer.Render(helpMarkdown)
	if err != nil {
		m.logger.Debug("rendering help failed", "error", err)
		return helpMarkdown
	}
	return out
}
