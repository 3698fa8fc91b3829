package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"closetapi/config"
	"closetapi/models"
	"closetapi/services"
	"closetapi/stylist"
)

var closetPath string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the stylist in the terminal using a JSON closet file",
	Example: `  stylistctl chat --closet closet.json
  OPENAI_BASE_URL=http://localhost:11434/v1 stylistctl chat --closet closet.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		closet, err := loadCloset(closetPath)
		if err != nil {
			return err
		}
		openAI, stylistCfg, err := config.LoadStylist()
		if err != nil {
			return err
		}
		chat, err := services.NewOpenAIChatService(openAI.APIKey, openAI.BaseURL, stylistCfg.Model, nil)
		if err != nil {
			return err
		}
		orchestrator := stylist.NewOrchestrator(chat, stylist.WithTimeout(stylistCfg.Timeout))
		return runChat(cmd.Context(), orchestrator, closet, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&closetPath, "closet", "", "path to a JSON array of closet items")
	chatCmd.MarkFlagRequired("closet")
}

// loadCloset reads closet items and rejects unknown types and duplicate ids.
func loadCloset(path string) ([]models.ClosetItem, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read closet: %w", err)
	}
	var closet []models.ClosetItem
	if err := json.Unmarshal(content, &closet); err != nil {
		return nil, fmt.Errorf("parse closet %s: %w", path, err)
	}

	seen := make(map[uint]bool, len(closet))
	for i, item := range closet {
		if item.ID == 0 {
			return nil, fmt.Errorf("closet item %d has no id", i)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("closet item id %d is used twice", item.ID)
		}
		seen[item.ID] = true
		if _, ok := models.ParseClothingType(string(item.Type)); !ok {
			return nil, fmt.Errorf("closet item %d has unknown type %q", item.ID, item.Type)
		}
	}
	return closet, nil
}

func runChat(ctx context.Context, orchestrator *stylist.Orchestrator, closet []models.ClosetItem, in io.Reader, out io.Writer) error {
	session := stylist.NewSession("local", 0, closet)
	state := session.State()
	fmt.Fprintf(out, "stylist> %s\n", state.Messages[0].Text)

	lastOutfit := state.LastOutfit
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		msg, err := orchestrator.SubmitUserMessage(ctx, session, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "stylist> %s\n", msg.Text)

		state = session.State()
		if !slices.Equal(state.LastOutfit, lastOutfit) {
			lastOutfit = state.LastOutfit
			fmt.Fprintf(out, "outfit> %s\n", describeOutfit(state.Preview))
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func describeOutfit(preview []models.ClosetItem) string {
	if len(preview) == 0 {
		return "(nothing from your closet)"
	}
	return strings.Join(lo.Map(preview, func(item models.ClosetItem, _ int) string {
		return fmt.Sprintf("%s [%s #%d]", item.Name, item.Type, item.ID)
	}), ", ")
}
