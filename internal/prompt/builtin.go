package prompt

// System prompts are fixed per stage; only the user prompts are templated.
const (
	PlanSystem = `You are a senior software architect planning code changes.

Analyze the requested change and the provided code context to create a structured change plan.

RULES:
1. Keep changes minimal and focused
2. Limit scope to essential modifications
3. Consider dependencies and side effects
4. Provide clear rationale for each change
5. Set confidence level (0.0-1.0) based on context clarity

OUTPUT: JSON with the following structure:
{
    "description": "Brief description of the planned changes",
    "files_to_modify": ["list of file paths"],
    "changes": [
        {
            "file_path": "<actual file path from Code Context>",
            "change_type": "modify|add|refactor",
            "description": "What will be changed",
            "affected_symbols": ["list of function/class names"]
        }
    ],
    "rationale": "Why these changes are needed",
    "confidence": 0.0-1.0,
    "estimated_impact": "low|medium|high"
}

IMPORTANT: Only use file paths that exist in the Code Context section. Do not invent or use placeholder paths.`

	DiffSystem = `You are an expert code refactoring assistant.
Your task is to generate a unified diff for the requested changes.

RULES:
1. Output ONLY a valid unified diff format
2. Include 3 lines of context before and after each change
3. Use proper diff headers (--- a/path and +++ b/path)
4. Do not add comments explaining the diff
5. Keep changes minimal and focused
6. Preserve existing code style and formatting
7. Do not modify unrelated code`

	ExplainSystem = `You are a code review assistant. Your task is to explain code changes clearly and concisely.

Provide:
1. A brief summary of what was changed
2. The reasoning behind each change
3. Any potential concerns or edge cases
4. References to specific lines where relevant

Be factual and avoid speculation.`
)

// builtinTemplates maps template filename to content.
var builtinTemplates = map[string]string{
	"plan.md":    planTemplate,
	"diff.md":    diffTemplate,
	"explain.md": explainTemplate,
}

const planTemplate = `Task: {{task}}
Task Type: {{task_type}}

Code Context:
{{context}}

Affected Files: {{affected_files}}

Create a structured change plan. Output JSON only.
`

const diffTemplate = `Generate a unified diff for the following change request.

File: {{file_path}}

Current content:
` + "```" + `
{{current_content}}
` + "```" + `

Requested change:
{{description}}

Additional context:
{{context}}

Output the unified diff:
`

const explainTemplate = `Explain the following code changes:

Task: {{task}}

Decision: {{decision}}
Quality Score: {{quality_score}}
Risk Score: {{risk_score}}

Diff:
` + "```" + `
{{diff}}
` + "```" + `

Validation Results:
{{check_summary}}

Provide a clear, concise explanation of the changes.
`
