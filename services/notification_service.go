package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"event-management-api/config"
	"event-management-api/models"
)

// Notifier delivers assignment notifications to reviewers. Dispatch is
// fire-and-forget: delivery failure is logged and never retried here.
type Notifier interface {
	NotifyAssignment(reviewer models.Reviewer, trabalho models.Trabalho, review models.Review)
}

type mailNotifier struct{}

// NewMailNotifier returns the SMTP-backed notifier.
func NewMailNotifier() Notifier {
	return mailNotifier{}
}

func (mailNotifier) NotifyAssignment(reviewer models.Reviewer, trabalho models.Trabalho, review models.Review) {
	go func() {
		subject := fmt.Sprintf("Novo trabalho para avaliação: %s", trabalho.Title)
		html := fmt.Sprintf(`<p>Olá %s,</p>
<p>Você recebeu um novo trabalho para avaliar: <strong>%s</strong>.</p>
<p>Acesse sua avaliação em <a href="%s">%s</a> usando o código de acesso <strong>%s</strong>.</p>`,
			reviewer.Name,
			trabalho.Title,
			reviewLink(review.Locator),
			reviewLink(review.Locator),
			review.AccessCode,
		)

		if err := config.SendMail([]string{reviewer.Email}, subject, html); err != nil {
			log.Printf("Warning: failed to notify reviewer %s about trabalho %d: %v",
				reviewer.ReviewerID, trabalho.TrabalhoID, err)
		}
	}()
}

func reviewLink(locator string) string {
	base := os.Getenv("REVIEW_BASE_URL")
	if base == "" {
		base = "http://localhost:8080/api/v1/review"
	}
	return strings.TrimRight(base, "/") + "/" + locator
}
