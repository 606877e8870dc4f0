// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command telawat is a terminal chat client for the Telawat assistant
// server. It keeps the conversation in memory and prints the streamed
// answer as it arrives.
//
// Usage:
//
//	telawat chat
//	telawat ask "أريد تلاوات المنشاوي"
//
// Set TELAWAT_ASSISTANT_URL to point at a non-local server.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

func getAssistantBaseURL() string {
	if url := os.Getenv("TELAWAT_ASSISTANT_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:8080"
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "telawat",
		Short: "Terminal client for the Telawat site assistant",
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Run:   runChatCommand,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAskCommand(_ *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	history := []datatypes.Message{{Role: datatypes.RoleUser, Content: question}}

	if _, err := streamTurn(context.Background(), history); err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Println()
}

func runChatCommand(_ *cobra.Command, _ []string) {
	fmt.Println("Telawat assistant. Type 'exit' to leave.")

	// Ctrl+C aborts the in-flight turn and exits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var history []datatypes.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" || input == "q" {
			fmt.Println("Goodbye.")
			break
		}

		history = append(history, datatypes.Message{Role: datatypes.RoleUser, Content: input})
		answer, err := streamTurn(ctx, history)
		fmt.Println()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			// Drop the failed turn so the history stays consistent.
			history = history[:len(history)-1]
			continue
		}
		history = append(history, datatypes.Message{Role: datatypes.RoleAssistant, Content: answer})
	}
}

// chatRequest mirrors the server's POST /v1/assistant/chat payload.
type chatRequest struct {
	Messages []datatypes.Message `json:"messages"`
}

// streamTurn sends the conversation and prints the streamed answer as
// it arrives, returning the full accumulated text.
func streamTurn(ctx context.Context, history []datatypes.Message) (string, error) {
	payload, err := json.Marshal(chatRequest{Messages: history})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := getAssistantBaseURL() + "/v1/assistant/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant server unavailable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("assistant error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var answer strings.Builder
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			answer.WriteString(chunk)
			fmt.Print(chunk)
		}
		if readErr == io.EOF {
			return answer.String(), nil
		}
		if readErr != nil {
			return answer.String(), fmt.Errorf("reading stream: %w", readErr)
		}
	}
}
