package views

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/justyntemme/jianyue/internal/epub"
	"github.com/justyntemme/jianyue/internal/input"
	"github.com/justyntemme/jianyue/internal/session"
	"github.com/justyntemme/jianyue/internal/toc"
	"github.com/justyntemme/jianyue/internal/ui/styles"
	"github.com/justyntemme/jianyue/pkg/models"
)

// chromeLines is the height of header, breadcrumb, status line and footer
const chromeLines = 4

// pageRenderer is implemented by engines that can draw into the terminal
type pageRenderer interface {
	Render() string
	PageLinks() []epub.Link
}

// titled is implemented by engines that know the book's own title
type titled interface {
	Title() string
}

// CellSize is the size of one terminal cell in the units swipe
// thresholds are expressed in
type CellSize struct {
	Width  float64
	Height float64
}

// ReaderView displays book content
type ReaderView struct {
	ctl   *session.Controller
	host  *TerminalHost
	cells CellSize
	log   *zap.Logger
	now   func() time.Time

	slug string

	// Overlays
	showTOC    bool
	tocCursor  int
	showLinks  bool
	linkCursor int

	// Transient message shown in the status line until the next key
	notice string

	// Mouse button held down, in cells
	pressed        bool
	pressX, pressY int
	pressedAt      time.Time

	// Dimensions
	width  int
	height int
}

// NewReaderView creates a new reader view
func NewReaderView(ctl *session.Controller, host *TerminalHost, cells CellSize, log *zap.Logger) *ReaderView {
	if log == nil {
		log = zap.NewNop()
	}
	if cells.Width <= 0 {
		cells.Width = 1
	}
	if cells.Height <= 0 {
		cells.Height = 1
	}
	v := &ReaderView{
		ctl:    ctl,
		host:   host,
		cells:  cells,
		log:    log,
		now:    time.Now,
		width:  80,
		height: 24,
	}
	ctl.Display().OnChange(v.onDisplayChange)
	return v
}

// SetBook sets the book to open on the next Init
func (v *ReaderView) SetBook(slug string) {
	v.slug = slug
	v.closeOverlays()
	v.notice = ""
	v.pressed = false
}

// ResumeMsg carries a session continuation back to the update loop. It
// belongs to the reader whichever view is on screen.
type ResumeMsg struct {
	resume session.Resume
}

// runTask runs a session task off the update loop
func runTask(t session.Task) tea.Cmd {
	if t == nil {
		return nil
	}
	return func() tea.Msg {
		r := t()
		if r == nil {
			return nil
		}
		return ResumeMsg{resume: r}
	}
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	if v.slug == "" {
		return nil
	}
	v.applyViewport()
	return tea.Batch(runTask(v.ctl.Open(v.slug)), v.host.Take())
}

// Leave ends the session when the reader is closed
func (v *ReaderView) Leave() tea.Cmd {
	if err := v.ctl.Close(); err != nil {
		v.log.Warn("closing session", zap.Error(err))
	}
	v.slug = ""
	v.closeOverlays()
	return v.host.Take()
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case ResumeMsg:
		cmds = append(cmds, runTask(msg.resume()))
		cmds = append(cmds, v.afterStatusChange())
	case tea.KeyMsg:
		v.notice = ""
		cmds = append(cmds, v.handleKeyMsg(msg))
	case tea.MouseMsg:
		v.handleMouseMsg(msg)
	}
	v.takeNotice()
	cmds = append(cmds, v.host.Take())
	return v, tea.Batch(cmds...)
}

// afterStatusChange reacts to the session leaving the loading state
func (v *ReaderView) afterStatusChange() tea.Cmd {
	switch v.ctl.Status() {
	case session.StatusRedirect:
		v.log.Info("book not in catalog, back to library", zap.String("slug", v.slug))
		return SwitchTo(ViewLibrary)
	case session.StatusReady:
		v.applyViewport()
	}
	return nil
}

func (v *ReaderView) takeNotice() {
	if n, ok := v.ctl.TakeNotice(); ok {
		v.notice = string(n)
	}
}

// handleKeyMsg dispatches key messages to mode-specific handlers
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if v.ctl.Status() != session.StatusReady {
		if msg.String() == "esc" {
			return SwitchTo(ViewLibrary)
		}
		return nil
	}
	if v.showTOC {
		return v.updateTOC(msg)
	}
	if v.showLinks {
		return v.updateLinks(msg)
	}
	return v.handleReaderKeyMsg(msg)
}

// handleReaderKeyMsg handles key presses in the main reader view
func (v *ReaderView) handleReaderKeyMsg(msg tea.KeyMsg) tea.Cmd {
	in := v.ctl.Input()
	disp := v.ctl.Display()

	switch msg.Type {
	case tea.KeyLeft:
		in.Key(input.KeyArrowLeft, false)
		return nil
	case tea.KeyUp:
		in.Key(input.KeyArrowUp, false)
		return nil
	case tea.KeyRight:
		in.Key(input.KeyArrowRight, false)
		return nil
	case tea.KeyDown:
		in.Key(input.KeyArrowDown, false)
		return nil
	case tea.KeySpace:
		in.Key(input.KeySpace, false)
		return nil
	}

	switch msg.String() {
	case "h", "p", "pgup":
		in.Key(input.KeyArrowLeft, false)
	case "l", "n", "pgdown":
		in.Key(input.KeyArrowRight, false)
	case "t":
		v.openTOC()
	case "tab":
		v.openLinks()
	case "+", "=":
		disp.IncreaseFont()
	case "-", "_":
		disp.DecreaseFont()
	case "0":
		disp.SetFontSize(models.DefaultFontSize)
	case "T":
		disp.CycleTheme()
	case "f":
		disp.ToggleFlow()
	case "s":
		disp.CycleSpread()
	case "F":
		disp.ToggleImmersive()
	case "r":
		if err := v.ctl.ReturnToPrevious(); err != nil {
			v.log.Warn("return failed", zap.Error(err))
		}
	case "x":
		v.ctl.DismissReturn()
	case "esc":
		if disp.State().Immersive {
			// The terminal escape leaves fullscreen on its own; the
			// machine only has to catch up.
			v.host.leave()
			disp.ExternalExit()
			return nil
		}
		return SwitchTo(ViewLibrary)
	}
	return nil
}

// handleMouseMsg turns wheel, clicks and drags into paging
func (v *ReaderView) handleMouseMsg(msg tea.MouseMsg) {
	if v.ctl.Status() != session.StatusReady || v.showTOC || v.showLinks {
		return
	}
	top, bottom := v.contentRows()
	if !v.pressed && (msg.Y < top || msg.Y >= bottom) {
		return
	}
	in := v.ctl.Input()
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		in.Wheel(-1)
	case msg.Button == tea.MouseButtonWheelDown:
		in.Wheel(1)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		v.pressed = true
		v.pressX, v.pressY = msg.X, msg.Y
		v.pressedAt = v.now()
		in.TouchStart(v.scaleX(msg.X), v.scaleY(msg.Y-top), v.pressedAt)
	case msg.Action == tea.MouseActionRelease && v.pressed:
		v.pressed = false
		if msg.X == v.pressX && msg.Y == v.pressY {
			// Same cell: a click. Consume the gesture without paging.
			in.TouchEnd(v.scaleX(msg.X), v.scaleY(msg.Y-top), v.pressedAt)
			in.Click(float64(msg.X)+0.5, float64(v.width))
			return
		}
		in.TouchEnd(v.scaleX(msg.X), v.scaleY(msg.Y-top), v.now())
	}
}

// contentRows returns the screen rows [top, bottom) showing the page
func (v *ReaderView) contentRows() (top, bottom int) {
	if v.ctl.Display().State().Immersive {
		return 0, v.height
	}
	return chromeLines - 1, v.height - 1
}

func (v *ReaderView) scaleX(x int) float64 { return float64(x) * v.cells.Width }
func (v *ReaderView) scaleY(y int) float64 { return float64(y) * v.cells.Height }

// onDisplayChange follows theme and immersive changes
func (v *ReaderView) onDisplayChange(state models.ReadingDisplayState) {
	styles.SetCurrentTheme(string(state.Theme))
	v.applyViewport()
}

// applyViewport hands the reading area to the session
func (v *ReaderView) applyViewport() {
	h := v.height
	if !v.ctl.Display().State().Immersive {
		h -= chromeLines
	}
	v.ctl.SetViewport(v.width, max(h, 1))
}

func (v *ReaderView) closeOverlays() {
	v.showTOC = false
	v.showLinks = false
}

// openTOC shows the table of contents with the cursor on the current entry
func (v *ReaderView) openTOC() {
	rows := toc.Flatten(v.ctl.TOC(), v.ctl.Expand())
	if len(rows) == 0 {
		v.notice = "no table of contents"
		return
	}
	v.showTOC = true
	v.tocCursor = 0
	// deepest visible entry of the breadcrumb
	path := v.ctl.NavPath()
	for i, r := range rows {
		for _, e := range path {
			if r.Node.Href == e.Href && r.Node.Label == e.Label {
				v.tocCursor = i
			}
		}
	}
}

// updateTOC handles TOC navigation
func (v *ReaderView) updateTOC(msg tea.KeyMsg) tea.Cmd {
	rows := toc.Flatten(v.ctl.TOC(), v.ctl.Expand())
	switch msg.String() {
	case "esc", "t":
		v.showTOC = false
	case "j", "down":
		if v.tocCursor < len(rows)-1 {
			v.tocCursor++
		}
	case "k", "up":
		if v.tocCursor > 0 {
			v.tocCursor--
		}
	case "g", "home":
		v.tocCursor = 0
	case "G", "end":
		v.tocCursor = len(rows) - 1
	case " ", "right", "left":
		if v.tocCursor < len(rows) && rows[v.tocCursor].HasChildren {
			v.ctl.Expand().Toggle(rows[v.tocCursor].Node.Href)
		}
	case "enter":
		if v.tocCursor < len(rows) {
			v.showTOC = false
			v.ctl.NavigateToc(rows[v.tocCursor].Node.Href)
		}
	}
	return nil
}

func (v *ReaderView) renderer() (pageRenderer, bool) {
	r, ok := v.ctl.Engine().(pageRenderer)
	return r, ok
}

// openLinks shows the links on the current page
func (v *ReaderView) openLinks() {
	r, ok := v.renderer()
	if !ok || len(r.PageLinks()) == 0 {
		v.notice = "no links on this page"
		return
	}
	v.showLinks = true
	v.linkCursor = 0
}

// updateLinks handles the link picker
func (v *ReaderView) updateLinks(msg tea.KeyMsg) tea.Cmd {
	r, ok := v.renderer()
	if !ok {
		v.showLinks = false
		return nil
	}
	links := r.PageLinks()
	switch msg.String() {
	case "esc", "tab":
		v.showLinks = false
	case "j", "down":
		if v.linkCursor < len(links)-1 {
			v.linkCursor++
		}
	case "k", "up":
		if v.linkCursor > 0 {
			v.linkCursor--
		}
	case "enter":
		v.showLinks = false
		if err := v.ctl.FollowLink(v.linkCursor); err != nil {
			return SendError(fmt.Errorf("follow link: %w", err))
		}
	}
	return nil
}

// View implements View
func (v *ReaderView) View() string {
	switch v.ctl.Status() {
	case session.StatusIdle, session.StatusRedirect:
		return styles.ErrorStyle.Render("No book selected")
	case session.StatusLoading:
		return v.place(styles.MutedText.Render("Opening book..."))
	case session.StatusFailed:
		return v.place(styles.ErrorStyle.Render("Error: " + errorText(v.ctl.Err())))
	}

	if v.showTOC {
		return v.renderTOC()
	}
	if v.showLinks {
		return v.renderLinks()
	}

	page := ""
	if r, ok := v.renderer(); ok {
		page = r.Render()
	}

	if v.ctl.Display().State().Immersive {
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Top, page)
	}

	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")
	b.WriteString(v.renderBreadcrumb() + "\n")
	b.WriteString(v.renderStatusLine() + "\n")
	b.WriteString(lipgloss.Place(v.width, max(v.height-chromeLines, 1), lipgloss.Center, lipgloss.Top, page) + "\n")
	b.WriteString(v.renderFooter())
	return b.String()
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	if errors.Is(err, session.ErrEngineInit) {
		return session.ErrEngineInit.Error()
	}
	return err.Error()
}

func (v *ReaderView) place(content string) string {
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, content)
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.applyViewport()
}

// renderHeader renders the title and the display settings
func (v *ReaderView) renderHeader() string {
	book := v.ctl.Book()
	if t, ok := v.ctl.Engine().(titled); ok && book.Title == "" {
		book.Title = t.Title()
	}
	maxTitleWidth := max(v.width/2, 10)
	title := styles.TruncateText(book.DisplayTitle(), maxTitleWidth)
	titlePart := styles.ReaderHeader.Render(" " + title + " ")
	author := styles.BookAuthor.Render(" " + styles.TruncateText(book.DisplayAuthor(), 24))

	st := v.ctl.Display().State()
	settings := styles.Help.Render(fmt.Sprintf(" Aa %d%% · %s · %s · %s ", st.FontSizePercent, st.Theme, st.Flow, st.Spread))

	left := titlePart + author
	gap := max(v.width-lipgloss.Width(left)-lipgloss.Width(settings), 0)
	return left + strings.Repeat(" ", gap) + settings
}

// renderBreadcrumb renders the TOC path of the current location
func (v *ReaderView) renderBreadcrumb() string {
	path := v.ctl.NavPath()
	if len(path) == 0 {
		return ""
	}
	labels := make([]string, len(path))
	for i, e := range path {
		labels[i] = e.Label
	}
	return styles.Breadcrumb.Render(styles.TruncateText(strings.Join(labels, " > "), v.width-2))
}

// renderStatusLine shows a pending notice or the return banner
func (v *ReaderView) renderStatusLine() string {
	if v.notice != "" {
		return styles.NoticeStyle.Render(v.notice)
	}
	if _, ok := v.ctl.PrevPosition(); ok {
		return styles.Banner.Render("Jumped. Return to previous position?") + " " +
			styles.HelpKey.Render("r") + styles.Help.Render(" return  ") +
			styles.HelpKey.Render("x") + styles.Help.Render(" keep reading")
	}
	return ""
}

// renderProgressBar renders a visual progress bar using Unicode block characters
// width is the total character width, progress is 0.0-1.0
func renderProgressBar(width int, progress float64) string {
	width = max(width, 3)
	progress = math.Min(math.Max(progress, 0), 1)

	// Unicode block characters for smooth rendering
	const (
		empty    = "░"
		filled   = "█"
		partials = "▏▎▍▌▋▊▉" // 1/8 to 7/8 filled
	)

	filledWidth := progress * float64(width)
	fullBlocks := int(filledWidth)
	remainder := filledWidth - float64(fullBlocks)

	var bar strings.Builder
	for i := 0; i < fullBlocks && i < width; i++ {
		bar.WriteString(filled)
	}
	if fullBlocks < width && remainder > 0 {
		partialIndex := min(int(remainder*8), 7)
		if partialIndex > 0 {
			bar.WriteRune([]rune(partials)[partialIndex-1])
			fullBlocks++
		}
	}
	for i := fullBlocks; i < width; i++ {
		bar.WriteString(empty)
	}
	return bar.String()
}

// renderFooter renders the location, page count and progress
func (v *ReaderView) renderFooter() string {
	loc, ok := v.ctl.Location()
	if !ok {
		return styles.Help.Render(" ?  help")
	}
	pct := int(math.Round(loc.Percentage * 100))
	right := renderProgressBar(12, loc.Percentage) +
		styles.ReaderProgress.Render(fmt.Sprintf(" %d%% ", pct))
	pages := styles.Help.Render(fmt.Sprintf(" %d/%d ", loc.Page, loc.TotalPages))
	hrefWidth := max(v.width-lipgloss.Width(right)-lipgloss.Width(pages)-2, 0)
	href := styles.MutedText.Render(" " + styles.TruncateText(loc.Href, hrefWidth))

	left := href + pages
	gap := max(v.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + strings.Repeat(" ", gap) + right
}

// renderTOC renders the table of contents overlay
func (v *ReaderView) renderTOC() string {
	rows := toc.Flatten(v.ctl.TOC(), v.ctl.Expand())
	loc, hasLoc := v.ctl.Location()

	visible := max(v.height-8, 1)
	start := 0
	if v.tocCursor >= visible {
		start = v.tocCursor - visible + 1
	}

	var b strings.Builder
	for i := start; i < min(start+visible, len(rows)); i++ {
		r := rows[i]
		marker := "  "
		if r.HasChildren {
			marker = "▸ "
			if r.Expanded {
				marker = "▾ "
			}
		}
		label := strings.Repeat("  ", r.Depth) + marker + styles.TruncateText(r.Node.Label, v.width-16-2*r.Depth)
		switch {
		case i == v.tocCursor:
			b.WriteString(styles.ListItemSelected.Render(label))
		case hasLoc && toc.Matches(r.Node.Href, loc.Href):
			b.WriteString(styles.ListItemActive.Render(label))
		default:
			b.WriteString(styles.ListItem.Render(label))
		}
		b.WriteString("\n")
	}

	help := styles.HelpKey.Render("enter") + styles.Help.Render(" go  ") +
		styles.HelpKey.Render("space") + styles.Help.Render(" expand  ") +
		styles.HelpKey.Render("esc") + styles.Help.Render(" close")
	dialog := styles.Dialog.Width(max(v.width-6, 20)).Render(
		styles.DialogTitle.Render("Contents") + "\n" + b.String() + "\n" + help,
	)
	return v.place(dialog)
}

// renderLinks renders the link picker overlay
func (v *ReaderView) renderLinks() string {
	r, ok := v.renderer()
	if !ok {
		return ""
	}
	var b strings.Builder
	for i, l := range r.PageLinks() {
		text := l.Text
		if text == "" {
			text = l.Href
		}
		line := styles.TruncateText(text, v.width-16)
		if i == v.linkCursor {
			b.WriteString(styles.ListItemSelected.Render(line))
		} else {
			b.WriteString(styles.ListItem.Render(line))
		}
		b.WriteString("\n")
	}
	dialog := styles.Dialog.Width(max(v.width-6, 20)).Render(
		styles.DialogTitle.Render("Links") + "\n" + b.String(),
	)
	return v.place(dialog)
}
