package editor

// Handle identifies a rendered editor instance inside a RichText widget.
type Handle any

// RichText is the rich-text editing widget the session drives. Content is
// exchanged as HTML.
type RichText interface {
	Render(html string) Handle
	OnChange(h Handle, fn func(html string))
	Focus(h Handle)
	InsertAtCursor(h Handle, text string)
}
