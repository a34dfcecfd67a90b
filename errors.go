/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	ErrLobbyNotFound      = errors.New("lobby not found")
	ErrNotHost            = errors.New("only the host can do that")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNotEnoughPlayers   = errors.New("need at least 3 connected players")
	ErrEmptyWordPool      = errors.New("word list is empty, add some words")
	ErrTooManyImpostors   = errors.New("too many impostors, need at least one innocent among connected players")
	ErrInvalidWord        = errors.New("invalid word")
	ErrInvalidSettings    = errors.New("at least 1 impostor required")
	ErrVotingNotActive    = errors.New("voting not active")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrCannotKickSelf     = errors.New("cannot kick yourself")
	ErrInvalidPhase       = errors.New("not allowed at this point in the game")
	ErrEmptyMessage       = errors.New("message is empty")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
