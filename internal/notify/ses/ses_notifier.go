package ses

import (
	"context"
	"fmt"
	"html"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"freightrates/internal/config"
	"freightrates/internal/domain"
	"freightrates/internal/port"
)

// sendEmailAPI is the subset of the SES v2 client used here.
type sendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesNotifier struct {
	client       sendEmailAPI
	from         string
	recipients   []string
	dashboardURL string
}

// NewNotifier creates an SES-backed JobNotifier.
func NewNotifier(ctx context.Context, cfg *config.NotifyConfig) (port.JobNotifier, error) {
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("notify.recipients must not be empty for the ses provider")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return newNotifier(sesv2.NewFromConfig(awsCfg), cfg), nil
}

func newNotifier(client sendEmailAPI, cfg *config.NotifyConfig) *sesNotifier {
	return &sesNotifier{
		client:       client,
		from:         fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
		recipients:   cfg.Recipients,
		dashboardURL: cfg.DashboardURL,
	}
}

func (n *sesNotifier) NotifyJobFailed(ctx context.Context, job *domain.ParseJob) error {
	subject := fmt.Sprintf("Rate parse job failed: %s", jobLabel(job))
	jobURL := fmt.Sprintf("%s/jobs/%s", n.dashboardURL, job.ID)
	htmlBody := buildFailureHTML(job, jobURL)
	textBody := fmt.Sprintf("Parse job %s (%s) failed after %d attempt(s).\n\nError: %s\n\n%s\n",
		job.ID, jobLabel(job), job.Attempts, job.ErrorMessage, jobURL)

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &n.from,
		Destination: &types.Destination{
			ToAddresses: n.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func jobLabel(job *domain.ParseJob) string {
	if job.SourceName != "" {
		return job.SourceName
	}
	return string(job.Source)
}

func buildFailureHTML(job *domain.ParseJob, jobURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Rate parse job failed</h2>
  <p><strong>%s</strong> could not be parsed after %d attempt(s).</p>
  <pre style="background: #f6f6f6; padding: 12px; white-space: pre-wrap;">%s</pre>
  <p><a href="%s">Open job %s</a></p>
</body>
</html>`, html.EscapeString(jobLabel(job)), job.Attempts, html.EscapeString(job.ErrorMessage),
		html.EscapeString(jobURL), job.ID)
}
