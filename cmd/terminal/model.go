package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/docwarden/internal/jobsclient"
)

const asciiLogo = `
╔═════════════════════════════════════════════════════════════════════════════════════════════════╗
║                                                                                                 ║
║       ██████╗  ██████╗  ██████╗██╗    ██╗ █████╗ ██████╗ ██████╗ ███████╗███╗   ██╗            ║
║       ██╔══██╗██╔═══██╗██╔════╝██║    ██║██╔══██╗██╔══██╗██╔══██╗██╔════╝████╗  ██║            ║
║       ██║  ██║██║   ██║██║     ██║ █╗ ██║███████║██████╔╝██║  ██║█████╗  ██╔██╗ ██║            ║
║       ██║  ██║██║   ██║██║     ██║███╗██║██╔══██║██╔══██╗██║  ██║██╔══╝  ██║╚██╗██║            ║
║       ██████╔╝╚██████╔╝╚██████╗╚███╔███╔╝██║  ██║██║  ██║██████╔╝███████╗██║ ╚████║            ║
║       ╚═════╝  ╚═════╝  ╚═════╝ ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚═╝  ╚═══╝            ║
║                                                                                                 ║
║                              JOB DASHBOARD                                                     ║
║                                                                                                 ║
╚═════════════════════════════════════════════════════════════════════════════════════════════════╝
`

type viewMode int

const (
	viewList viewMode = iota
	viewDetail
)

type model struct {
	styles styles
	client *jobsclient.Client
	apiURL string

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	mode      viewMode
	isLoading bool
	showLogo  bool

	jobs        []jobsclient.Job
	selectedJob string
	logLines    []string
	lastErr     string
}

func initialModel(theme ThemeName, client *jobsclient.Client, apiURL string) *model {
	styles := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Paste a repository URL to submit, or /view <job-id>, /help"
	ta.Focus()
	ta.Prompt = styles.prompt.Render("► ")
	ta.CharLimit = 500
	ta.SetWidth(70)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	return &model{
		styles:    styles,
		client:    client,
		apiURL:    apiURL,
		textarea:  ta,
		spinner:   sp,
		mode:      viewList,
		isLoading: true,
		showLogo:  true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(loadJobsCmd(m.client), tickCmd(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			if m.mode == viewDetail {
				m.mode = viewList
				m.selectedJob = ""
				m.renderList()
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.processInput(input)
		}

	case jobsLoadedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.jobs = msg.jobs
			m.lastErr = ""
		}
		if m.mode == viewList {
			m.renderList()
		}
		return m, nil

	case artifactLoadedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			m.log(m.styles.error.Render("⚠ could not load artifact: " + msg.err.Error()))
			return m, nil
		}
		m.mode = viewDetail
		m.selectedJob = msg.jobID
		m.renderArtifact(msg.content)
		return m, nil

	case jobSubmittedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.log(m.styles.error.Render("⚠ submit failed: " + msg.err.Error()))
			return m, nil
		}
		m.log(m.styles.success.Render(fmt.Sprintf("✓ submitted job %s (%s)", msg.job.ID, msg.job.Status)))
		return m, loadJobsCmd(m.client)

	case tickMsg:
		var cmd tea.Cmd
		if m.mode == viewList {
			cmd = loadJobsCmd(m.client)
		}
		return m, tea.Batch(cmd, tickCmd())

	case tea.WindowSizeMsg:
		m.styles.header.Width(msg.Width - 4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		m.textarea.SetWidth(msg.Width - 10)
		if m.mode == viewList {
			m.renderList()
		}
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) log(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > 5 {
		m.logLines = m.logLines[len(m.logLines)-5:]
	}
}

func (m *model) processInput(input string) tea.Cmd {
	parts := strings.Fields(input)
	command := parts[0]

	switch command {
	case "/view":
		if len(parts) != 2 {
			m.log(m.styles.error.Render("USAGE: /view <job-id>"))
			return nil
		}
		m.isLoading = true
		return loadArtifactCmd(m.client, parts[1])

	case "/list", "/ls":
		m.mode = viewList
		m.selectedJob = ""
		m.renderList()
		return loadJobsCmd(m.client)

	case "/help", "/h":
		m.log(m.styles.inactive.Render("commands: <url> to submit, /view <job-id>, /list, /help, esc/quit"))
		return nil

	case "/quit", "/exit":
		return tea.Quit

	default:
		if strings.HasPrefix(command, "/") {
			m.log(m.styles.error.Render("UNKNOWN COMMAND: " + command))
			return nil
		}
		variant := "docs"
		if len(parts) > 1 {
			variant = parts[1]
		}
		m.isLoading = true
		m.log(m.styles.command.Render("→ submitting " + command))
		return submitJobCmd(m.client, command, variant)
	}
}

func (m *model) renderList() {
	var b strings.Builder
	if m.showLogo {
		b.WriteString(m.styles.ascii.Render(asciiLogo))
		b.WriteString("\n\n")
	}
	if len(m.jobs) == 0 {
		b.WriteString(m.styles.inactive.Render("No jobs yet. Paste a repository URL below to submit one."))
	} else {
		b.WriteString(m.styles.success.Render(fmt.Sprintf("JOBS (%d)", len(m.jobs))))
		b.WriteString("\n")
		for _, job := range m.jobs {
			b.WriteString(fmt.Sprintf("\n  %s  %-9s  %-16s  %s", jobStatusBadge(m.styles, job.Status), job.Status, job.Variant, job.Source))
			b.WriteString(fmt.Sprintf("\n    %s", m.styles.inactive.Render(job.ID)))
		}
		b.WriteString("\n\n" + m.styles.inactive.Render("Type /view <job-id> to open a completed job's artifact."))
	}
	if len(m.logLines) > 0 {
		b.WriteString("\n\n" + strings.Join(m.logLines, "\n"))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *model) renderArtifact(content string) {
	rendered := content
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.viewport.Width),
	)
	if err == nil {
		if out, rerr := renderer.Render(content); rerr == nil {
			rendered = out
		}
	}
	m.viewport.SetContent(rendered)
	m.viewport.GotoTop()
}

func jobStatusBadge(s styles, status string) string {
	switch status {
	case "completed":
		return s.success.Render("●")
	case "failed":
		return s.error.Render("●")
	case "processing":
		return s.command.Render("●")
	default:
		return s.inactive.Render("○")
	}
}

func (m *model) View() string {
	var statusParts []string
	statusParts = append(statusParts, "API: "+m.apiURL)
	statusParts = append(statusParts, fmt.Sprintf("JOBS: %d", len(m.jobs)))
	if m.selectedJob != "" {
		statusParts = append(statusParts, "VIEWING: "+m.selectedJob)
	}
	if m.lastErr != "" {
		statusParts = append(statusParts, m.styles.error.Render("last error: "+m.lastErr))
	}
	status := m.styles.inactive.Render(strings.Join(statusParts, " │ "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("LOADING...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left,
					m.textarea.View(),
					loadingIndicator,
				),
			),
			status,
		),
	)
}
