/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
)

// Game rejections are plain sentinel errors. Validation and capacity
// failures go back to the originating client as an "error" event; provider
// and persistence failures are recovered or swallowed internally and never
// reach clients.
var (
	ErrCodeExhausted    = errors.New("cannot allocate room code")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrWrongPhase       = errors.New("not allowed in the current phase")
	ErrNotTheHost       = errors.New("only the current host may do that")
	ErrHostCannotAnswer = errors.New("the host does not answer this round")
	ErrAlreadyAnswered  = errors.New("answer already submitted")
	ErrEmptyAnswer      = errors.New("answer cannot be empty")
	ErrUnknownTheme     = errors.New("theme is not one of the offered choices")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrBadSessionToken  = errors.New("session token does not match")
	ErrNotJoined        = errors.New("join a room first")
)

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
