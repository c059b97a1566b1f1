package notification

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/openbanco/account-server/internal/model"
)

// Subjects of the workflow emails.
const (
	SubjectRequested    = "Bank account requested"
	SubjectRejected     = "Bank account rejected"
	SubjectFirstApprove = "Bank account first approval phase"
	SubjectApproved     = "Bank account approved"
)

var (
	requestedTmpl = template.Must(template.New("requested").Parse(`<main>
	<h1>Bank account requested</h1>
	<p>Your account has been requested successfully. Please wait for approval and watch your inbox.</p>
	<p><b>Request details:</b><br>
	Names: {{.Names}}<br>
	Lastnames: {{.Lastnames}}<br>
	Identity number: {{.CI}}<br>
	Email: {{.Email}}<br>
	Sex: {{.Sex}}<br>
	Age: {{.Age}}<br>
	Reason: {{.Reason}}</p>
	<p>Sincerely,<br>The bank support team</p>
</main>`))

	rejectedTmpl = template.Must(template.New("rejected").Parse(`<main>
	<h1>Bank account rejected</h1>
	<p>Your account request has been rejected for the following reason: {{.Reason}}</p>
	<p>If you wish to request a bank account again, do not hesitate to do so.</p>
	<p>Sincerely,<br>The bank support team</p>
</main>`))

	firstApproveTmpl = template.Must(template.New("firstApprove").Parse(`<main>
	<h1>First approval phase passed</h1>
	<p>Your account has passed the first approval phase. To continue, please upload a photo
	showing you holding your identity document, so we can verify that the applicant and the
	document holder are the same person.</p>
	<p><a href="{{.UploadURL}}">Upload identity document</a></p>
</main>`))

	approvedTmpl = template.Must(template.New("approved").Parse(`<main>
	<h1>Bank account approved</h1>
	<p>Congratulations, your account has been fully approved. You will be contacted shortly
	to complete the opening formalities.</p>
	<p>Sincerely,<br>The bank support team</p>
</main>`))
)

func render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}

// RequestedEmail is sent right after a submission is persisted.
func RequestedEmail(draft model.AccountDraft) (string, error) {
	return render(requestedTmpl, draft)
}

// RejectedEmail is sent before the rejected request is deleted.
func RejectedEmail(reason string) (string, error) {
	return render(rejectedTmpl, struct{ Reason string }{Reason: reason})
}

// FirstApproveEmail carries the link to the identity-picture upload page.
func FirstApproveEmail(uploadURL string) (string, error) {
	return render(firstApproveTmpl, struct{ UploadURL string }{UploadURL: uploadURL})
}

// ApprovedEmail is sent when the account reaches full approval.
func ApprovedEmail() (string, error) {
	return render(approvedTmpl, nil)
}
