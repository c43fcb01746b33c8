package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/brensch/snakegym/rollout"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle = lipgloss.NewStyle().Bold(true)
	deathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	capStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const recentEpisodes = 10

// runState is written by the rollout goroutine before done is closed.
type runState struct {
	summary rollout.Summary
	err     error
	done    chan struct{}
}

type runFinishedMsg struct{}

type tickMsg time.Time

type model struct {
	policy   string
	target   int
	updates  <-chan rollout.Result
	finished <-chan struct{}

	episodes      int
	steps         int64
	bestScore     int
	runningReward float64
	deaths        int
	startTime     time.Time
	recent        []string
}

func initialModel(policy string, target int, updates <-chan rollout.Result, finished <-chan struct{}) model {
	return model{
		policy:    policy,
		target:    target,
		updates:   updates,
		finished:  finished,
		startTime: time.Now(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(updates <-chan rollout.Result) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func waitForFinish(finished <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-finished
		return runFinishedMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), waitForFinish(m.finished), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		return m, tickCmd()
	case rollout.Result:
		ep := msg.Episode
		m.episodes++
		m.steps += int64(ep.Steps())
		m.bestScore = max(m.bestScore, ep.BestScore)
		m.runningReward = msg.RunningReward

		outcome := capStyle.Render("step cap")
		if ep.Terminated {
			m.deaths++
			outcome = deathStyle.Render("died")
		}
		line := fmt.Sprintf("worker %2d  ep %5d  steps %4d  reward %7.2f  best %3d  %s",
			msg.Worker, ep.Index, ep.Steps(), ep.TotalReward, ep.BestScore, outcome)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > recentEpisodes {
			m.recent = m.recent[:recentEpisodes]
		}
		return m, waitForUpdate(m.updates)
	case runFinishedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	elapsed := time.Since(m.startTime)
	var epsPerSec, stepsPerSec float64
	if elapsed >= time.Second {
		epsPerSec = float64(m.episodes) / elapsed.Seconds()
		stepsPerSec = float64(m.steps) / elapsed.Seconds()
	}

	target := "∞"
	if m.target > 0 {
		target = fmt.Sprint(m.target)
	}

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("snakegym rollout: "+m.policy) + "\n\n")
	b.WriteString(row("Episodes", fmt.Sprintf("%d / %s", m.episodes, target)))
	b.WriteString(row("Steps", fmt.Sprint(m.steps)))
	b.WriteString(row("Deaths", fmt.Sprint(m.deaths)))
	b.WriteString(row("Best score", fmt.Sprint(m.bestScore)))
	b.WriteString(row("Running reward", fmt.Sprintf("%.3f", m.runningReward)))
	b.WriteString(row("Elapsed", elapsed.Round(time.Second).String()))
	b.WriteString(row("Episodes/sec", fmt.Sprintf("%.2f", epsPerSec)))
	b.WriteString(row("Steps/sec", fmt.Sprintf("%.0f", stepsPerSec)))

	s := boxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n\nRecent episodes:\n"
	for _, line := range m.recent {
		s += line + "\n"
	}
	s += helpStyle.Render("\nPress q to stop.") + "\n"
	return s
}
