package moderation

import (
	"fmt"
	"strings"

	"github.com/sellerhub/news-curator/internal/core/domain"
)

const (
	hintMessage = "Не понял ответ. Отправьте:\n" +
		"0 / все — опубликовать всё\n" +
		"отмена — отклонить всё\n" +
		"номера через пробел или запятую (например: 1 3) — исключить эти пункты"

	timeoutMessage = "Время модерации истекло, дайджест опубликован полностью."
)

func formatProposal(category domain.Category, items []domain.SelectedItem, timeout string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Модерация: %s (%d новостей)\n\n", category.DisplayName, len(items)))

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. [%d/10] %s\n", i+1, item.Score, item.Title))

		if item.Description != "" {
			sb.WriteString(item.Description + "\n")
		}

		if item.SourceLink != "" {
			sb.WriteString(item.SourceLink + "\n")
		}

		sb.WriteString("\n")
	}

	sb.WriteString("Ответьте: 0/все — опубликовать всё, отмена — отклонить всё, ")
	sb.WriteString("или номера для исключения (1 3). ")
	sb.WriteString(fmt.Sprintf("Без ответа в течение %s дайджест публикуется полностью.", timeout))

	return sb.String()
}

func formatResolution(category domain.Category, status domain.SessionStatus, approved, total int) string {
	switch status {
	case domain.SessionApprovedAll:
		return fmt.Sprintf("%s: все %d новостей одобрены.", category.DisplayName, total)
	case domain.SessionApprovedSubset:
		return fmt.Sprintf("%s: одобрено %d из %d новостей.", category.DisplayName, approved, total)
	case domain.SessionRejectedAll:
		return fmt.Sprintf("%s: дайджест отклонён.", category.DisplayName)
	default:
		return ""
	}
}
