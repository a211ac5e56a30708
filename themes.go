/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const themeCount = 3

// ThemeProvider supplies candidate themes for a round. GenerateThemes may
// fail; FallbackThemes never does.
type ThemeProvider interface {
	GenerateThemes(ctx context.Context) ([]string, error)
	FallbackThemes() []string
}

// fallbackThemes is walked by a session cursor so consecutive fallback
// rounds never repeat until the list wraps.
var fallbackThemes = []string{
	"Something you'd never say to your boss",
	"The worst possible name for a pet",
	"A terrible slogan for a funeral home",
	"What you'd do with a million dollars for one day",
	"The most useless superpower",
	"An unfortunate tattoo to wake up with",
	"A rejected flavor of ice cream",
	"The worst thing to hear from your dentist",
	"A bad opening line for a wedding speech",
	"Something you'd smuggle onto a desert island",
	"The least inspiring motivational poster",
	"A suspicious item to buy in bulk",
}

// httpThemeProvider asks an OpenAI-compatible chat completions endpoint for
// themes, treating the service as a black box. Any failure falls through to
// the local list.
type httpThemeProvider struct {
	url    string
	key    string
	model  string
	client *http.Client

	cursor int
}

func newThemeProvider(cfg *Config) *httpThemeProvider {
	return &httpThemeProvider{
		url:   cfg.themeAPIURL,
		key:   cfg.themeAPIKey,
		model: cfg.themeModel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const themePrompt = `Generate exactly 3 short, funny fill-in-the-blank party game themes, ` +
	`one per line, no numbering. Each should prompt players to write a short humorous answer.`

func (p *httpThemeProvider) GenerateThemes(ctx context.Context) ([]string, error) {
	if p.url == "" {
		return nil, errors.New("no theme endpoint configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: themePrompt},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.key != "" {
		req.Header.Set("Authorization", "Bearer "+p.key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("theme endpoint returned %s", resp.Status)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("theme endpoint returned no choices")
	}

	themes := splitThemes(parsed.Choices[0].Message.Content)
	if len(themes) < themeCount {
		return nil, fmt.Errorf("theme endpoint returned %d themes, want %d", len(themes), themeCount)
	}

	return themes[:themeCount], nil
}

// FallbackThemes returns the next three themes from the built-in list.
func (p *httpThemeProvider) FallbackThemes() []string {
	themes := make([]string, 0, themeCount)
	for range themeCount {
		themes = append(themes, fallbackThemes[p.cursor%len(fallbackThemes)])
		p.cursor++
	}
	return themes
}

func splitThemes(content string) []string {
	themes := make([]string, 0, themeCount)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"-*`))
		if line == "" {
			continue
		}
		themes = append(themes, line)
	}
	return themes
}
