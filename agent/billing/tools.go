package billing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/rag/retriever"
	"github.com/sweetpotato0/ai-dispatch/tool"
)

// Tool names offered to the model.
const (
	ToolOpenRefundCase        = "open_refund_case"
	ToolConfirmPlanDetails    = "confirm_plan_details"
	ToolExplainRefundTimeline = "explain_refund_timeline"
)

// newCaseID returns "RFD-" followed by six digits.
func newCaseID() string {
	return fmt.Sprintf("RFD-%d", 100000+rand.IntN(900000))
}

// tools builds the registry for one turn; handlers close over the question
// and the knowledge retrieved for it.
func (a *Agent) tools(question string, knowledge retriever.Result) *tool.Registry {
	return tool.NewRegistry().MustRegister(
		&tool.Tool{
			Name:        ToolOpenRefundCase,
			Description: "Create a refund support ticket and share the intake form link.",
			Parameters: []tool.Parameter{
				{Name: "customer_name", Type: "string", Description: "Full name of the customer requesting the refund.", Required: true},
				{Name: "email", Type: "string", Description: "Customer contact email for follow-up.", Required: true},
				{Name: "plan_name", Type: "string", Description: "Plan associated with the charge."},
				{Name: "amount", Type: "number", Description: "Refund amount requested."},
				{Name: "currency", Type: "string", Description: "Currency code like USD or EUR."},
				{Name: "reason", Type: "string", Description: "Short description of why the refund is requested.", Required: true},
				{Name: "purchase_date", Type: "string", Description: "ISO date of the original transaction if provided."},
			},
			Handler: func(_ context.Context, args map[string]any) (string, error) {
				return a.openRefundCase(args), nil
			},
		},
		&tool.Tool{
			Name:        ToolConfirmPlanDetails,
			Description: "Summarize pricing and features for a subscription plan.",
			Parameters: []tool.Parameter{
				{Name: "plan_name", Type: "string", Description: "Name or alias of the plan.", Required: true},
			},
			Handler: func(_ context.Context, args map[string]any) (string, error) {
				return a.confirmPlanDetails(args, knowledge), nil
			},
		},
		&tool.Tool{
			Name:        ToolExplainRefundTimeline,
			Description: "Explain review and payout timelines for refunds, referencing policy.",
			Parameters: []tool.Parameter{
				{Name: "plan_name", Type: "string", Description: "Optional plan name if mentioned."},
			},
			Handler: func(_ context.Context, args map[string]any) (string, error) {
				return a.explainRefundTimeline(args, question, knowledge), nil
			},
		},
	)
}

func (a *Agent) openRefundCase(args map[string]any) string {
	customer := tool.String(args, "customer_name", "the customer")
	email := tool.String(args, "email", a.cfg.BillingEmail)
	planName := tool.String(args, "plan_name", "")
	currency := tool.String(args, "currency", "USD")
	reason := tool.String(args, "reason", "")
	purchaseDate := tool.String(args, "purchase_date", "")
	amount, _ := tool.Number(args, "amount")

	var b strings.Builder
	fmt.Fprintf(&b, "I've opened refund case %s for %s.\n", a.caseID(), customer)
	b.WriteString("Next steps:\n")
	fmt.Fprintf(&b, "1. Please submit the intake form so our team has the required details: %s\n", a.cfg.RefundFormURL)
	fmt.Fprintf(&b, "2. We'll review within %d business days and confirm via %s.\n", a.cfg.RefundReviewDays, email)
	fmt.Fprintf(&b, "3. Once approved, refunds reach the payment method within %d business days.", a.cfg.RefundPayoutDays)
	if planName != "" {
		fmt.Fprintf(&b, "\nPlan on file: %s.", planName)
	}
	if amount > 0 {
		fmt.Fprintf(&b, " Requested refund amount: %.2f %s.", amount, currency)
	}
	if purchaseDate != "" {
		fmt.Fprintf(&b, " Transaction date: %s.", purchaseDate)
	}
	if reason != "" {
		fmt.Fprintf(&b, "\nReason provided: %s.", reason)
	}
	return b.String()
}

func (a *Agent) confirmPlanDetails(args map[string]any, knowledge retriever.Result) string {
	planName := tool.String(args, "plan_name", "")
	if planName == "" {
		return "Could you share which plan you are referring to?"
	}

	plan, ok := a.catalog.Locate(planName)
	if !ok {
		return fmt.Sprintf("I couldn't find a plan named '%s'. We currently support: %s.",
			planName, strings.Join(a.catalog.Keys(), ", "))
	}

	var b strings.Builder
	b.WriteString(plan.PriceSummary())
	b.WriteString("\nKey features:\n")
	b.WriteString(plan.FeatureList())
	if plan.RefundTimeline != "" {
		fmt.Fprintf(&b, "Refund timeline: %s\n", plan.RefundTimeline)
	}
	if plan.CancellationPolicy != "" {
		fmt.Fprintf(&b, "Cancellation: %s", plan.CancellationPolicy)
	}
	if !knowledge.IsEmpty() {
		b.WriteString("\nRelated notes: ")
		b.WriteString(knowledge.Summary())
	}
	return b.String()
}

func (a *Agent) explainRefundTimeline(args map[string]any, question string, knowledge retriever.Result) string {
	var (
		plan  Plan
		found bool
	)
	if planName := tool.String(args, "plan_name", ""); planName != "" {
		plan, found = a.catalog.Locate(planName)
	} else {
		plan, found = a.catalog.Detect(question)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Refund review: within %d business days.\n", a.cfg.RefundReviewDays)
	fmt.Fprintf(&b, "Payout: processed within %d business days after approval.\n", a.cfg.RefundPayoutDays)
	if found && plan.RefundTimeline != "" {
		fmt.Fprintf(&b, "Plan-specific note: %s\n", plan.RefundTimeline)
	}
	b.WriteString(a.cfg.PolicySummary)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Contact %s if you need an expedited review.", a.cfg.BillingEmail)
	if !knowledge.IsEmpty() {
		b.WriteString("\nReference notes: ")
		b.WriteString(knowledge.Summary())
	}
	return b.String()
}
