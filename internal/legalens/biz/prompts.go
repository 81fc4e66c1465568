package biz

import (
	"strings"

	"github.com/kart-io/legalens/internal/model"
)

// render 替换模板中的 {name} 占位符。
func render(tpl string, kv ...string) string {
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

const classificationPrompt = `You are a contract classifier.
Based ONLY on the text provided, decide if this contract is:
- Rental Agreement
- Employment Agreement
- Loan Agreement

Return only one word: "rental", "employment", "loan".

Document:
{document_text}
`

const keyEntityPrompt = `You are an expert legal analyst tasked with extracting ONLY the most critical entities from a legal document. Your output will be used for a high-level summary, so it must be concise.

**Instructions:**
1.  **Be Selective:** Focus only on the primary entities that define the agreement.
2.  **Primary Parties:** Identify the main parties (e.g., Lender, Borrower, Landlord).
3.  **Core Financials:** Extract the main financial figures (e.g., Loan Amount, Monthly Rent, Interest Rate).
4.  **Essential Terms & Dates:** Pinpoint crucial dates and terms (e.g., First Payment Date, Repayment Term, Collateral).
5.  **Omit Secondary Info:** Do NOT include witnesses, full street addresses (unless it's collateral), or general city names.
6.  **Formatting:**
    - Do NOT include headers or introductory sentences.
    - Present the result as a simple bulleted list, with each point starting with '*'.
    - **Crucially, use the format: ` + "`* Label: Value`" + `**.

**Example for a Loan Agreement:**
* Lender: Rajesh Kumar
* Borrower: Priya Sharma
* Loan Amount: Rs. 10,00,000
* Interest Rate: 12% per annum
* Repayment Term: 24 months

**Example for a Rental Agreement:**
* Landlord: Aarav Singh
* Tenant: Sneha Gupta
* Monthly Rent: ₹25,000
* Security Deposit: ₹50,000
* Lease Term: 11 Months

Document Text:
"""{document_text}"""
`

const summaryPrompt = `You are an expert legal analyst. Your task is to explain a {contract_kind} in simple, plain English for someone in Bengaluru, Karnataka.

**Instructions:**
1.  **Narrative Only:** Write a narrative summary explaining what the agreement means. {summary_focus}
2.  **No Lists:** Do NOT create a separate bulleted or itemized list of "Key Details".
3.  **No Intros/Outros:** Do NOT start with conversational phrases like "Of course, here is..." and do NOT add a disclaimer at the end.
4.  **Just the Summary:** Your entire response must be only the narrative summary text.

Here is the document:
{document_text}
`

const clauseAnalysisPrompt = `You are a legal risk analyzer for Indian {contract_kind}s.

Analyze the "User's Clause" using BOTH:
1) the "Expert Context" (if substantive), and
2) your domain knowledge of {domain_knowledge}.

If the Expert Context is empty or insufficient, DO NOT say "no context" or "N/A".
You MUST still classify risk and provide one-sentence advice based on the clause itself
and general norms for {contract_kind}s in Bengaluru/Karnataka.

Return ONLY a VALID JSON object with EXACTLY these keys:
- "risk_level": one of "Red", "Yellow", "Green", or "Neutral"
- "risk_explanation": one concise sentence
- "actionable_advice": one concise sentence tailored to the clause
- "clause_category": concise category (e.g., {category_examples})

**User's Clause to Analyze:**
"""{chunk}"""

**Expert Context from Knowledge Base:**
{similar_clauses_context}
`

const flowchartPrompt = `You are a helpful assistant that converts a summary of a legal document into a Mermaid.js flowchart.
Based on the following summary, create a Mermaid.js flowchart that visualizes the key stages and decision points of the agreement.

The flowchart should be simple and easy to understand for a layperson.
Your response should only contain the Mermaid code, starting with ` + "```mermaid" + ` and ending with ` + "```" + `.

Summary:
{summary}
`

const salaryExtractionPrompt = `You are an expert financial analyst reading an Indian employment offer letter. Your goal is to determine the monthly salary components.

**Primary Task:**
First, try to find the explicit monthly values for:
- Basic Salary
- House Rent Allowance (HRA)
- Special Allowance

**Contingency Plan:**
If the document only mentions a total "Cost to Company" (CTC) or "Gross Annual Salary", you must estimate the monthly components based on standard Indian salary structures:
- **Basic Salary:** 40% of the annual CTC, divided by 12.
- **HRA:** 50% of the monthly Basic Salary.
- **Special Allowance:** The remaining amount to make up the total monthly salary.

**Instructions:**
1.  If explicit monthly components are present, use them.
2.  If only an annual total is present, calculate the estimated monthly components.
3.  Return ONLY a valid JSON object with EXACTLY these keys: "basic_salary", "hra", "special_allowance".
4.  The values must be numbers. If a component cannot be found or calculated, use 0.

Document Text:
"""{document_text}"""
`

const dateExtractionPrompt = `You are an expert at identifying important dates in legal documents.
Analyze the document below and extract all key dates and their significance.

**Instructions:**
1.  Identify dates like start dates, end dates, notice deadlines, payment due dates, etc.
2.  For each date, provide a clear, concise description of what it represents.
3.  Format the output as a valid JSON array of objects. Each object must have two keys: "date" (in YYYY-MM-DD format) and "description" (a string).
4.  If no significant dates are found, return an empty array ` + "`[]`" + `.

**Example Output:**
[
  {"date": "2025-09-10", "description": "Employment Start Date"},
  {"date": "2026-03-10", "description": "Probation Period Ends"}
]

Document Text:
"""{document_text}"""
`

const chatPrompt = `You are a legal assistant specializing in Indian rental, employment and loan agreements.

Your job:
1. First, check the provided summary and clause analyses for explicit rules.
2. If the agreement is silent on the issue, point this out clearly.
3. Then, explain the *typical legal or common practice in India* that would apply in such a case.
4. Suggest what the user should clarify or negotiate with the other party.

Keep your answer simple, practical, and written for a non-lawyer.

**Contract Summary:**
{summary}

**Detailed Analysis of Clauses:**
{detailed_analysis}

**User Question:**
{question}

Keep the response small and one liner points
`

const loanToolPrompt = `The loan agreement has {rate}% interest. Search for banks offering lower rates. Query: {query}`

const loanFollowupPrompt = `The agreement interest rate is {rate}%. Here are the current market loan rates: {results}. Compare and suggest the best option.`

// categoryPrompt 保存每个合同类型的提示片段。
type categoryPrompt struct {
	contractKind     string
	summaryFocus     string
	domainKnowledge  string
	categoryExamples string
}

var categoryPrompts = map[model.Category]categoryPrompt{
	model.CategoryRental: {
		contractKind:     "rental agreement",
		summaryFocus:     "Describe the key terms like rent, deposit, and lease duration within the story.",
		domainKnowledge:  "typical Indian rental practices",
		categoryExamples: `"Security Deposit", "Termination", "Maintenance", "Rent & Payment"`,
	},
	model.CategoryEmployment: {
		contractKind:     "employment agreement",
		summaryFocus:     "Describe the key terms like salary, job role, and notice period within the story.",
		domainKnowledge:  "typical Indian employment practices and labor laws",
		categoryExamples: `"Salary & Compensation", "Probation", "Termination", "Non-Compete", "Leave Policy"`,
	},
	model.CategoryLoan: {
		contractKind:     "loan agreement",
		summaryFocus:     "Describe who is lending money to whom, the amount, interest, repayment plan, and any important conditions like collateral or penalties.",
		domainKnowledge:  "Indian lending practices and RBI guidelines",
		categoryExamples: `"Interest Rate", "Repayment", "Default", "Collateral", "Prepayment"`,
	},
}

func summaryPromptFor(category model.Category, text string) string {
	cp := categoryPrompts[category]
	return render(summaryPrompt,
		"contract_kind", cp.contractKind,
		"summary_focus", cp.summaryFocus,
		"document_text", text,
	)
}

func clauseAnalysisPromptFor(category model.Category, chunk, context string) string {
	cp := categoryPrompts[category]
	return render(clauseAnalysisPrompt,
		"contract_kind", cp.contractKind,
		"domain_knowledge", cp.domainKnowledge,
		"category_examples", cp.categoryExamples,
		"chunk", chunk,
		"similar_clauses_context", context,
	)
}
