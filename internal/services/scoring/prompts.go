package scoring

// systemPrompt frames the model as a messaging strategist and pins the
// output contract.
const systemPrompt = `You are a website messaging strategist. You analyze the copy of business websites and score how clearly they communicate value. You respond with JSON only, no prose outside the JSON object.`

// scoringPromptHeader precedes the crawled page content in the scoring
// request.
const scoringPromptHeader = `Analyze the messaging of the website below. Score each category from 0 to 10:
- clarity: can a first-time visitor tell what the business does and for whom
- specificity: concrete outcomes and numbers versus vague claims
- proof: evidence such as testimonials, certifications, case studies, guarantees
- differentiation: reasons to choose this business over alternatives

Identify the most important messaging issues, ordered most severe first. For each issue attach findings: a verbatim phrase from the site, a suggested rewrite, where it appears, and the page path it came from.

Also summarize the brand voice in one or two sentences, and suggest up to five likely direct competitor domains with a confidence level (high, medium, low) that each is a genuine competitor.

Respond with exactly this JSON shape:
{
  "categories": {"clarity": 0, "specificity": 0, "proof": 0, "differentiation": 0},
  "overall_score": 0,
  "issues": [
    {"title": "", "severity": "high|medium|low", "findings": [
      {"phrase": "", "rewrite": "", "location": "", "source_path": ""}
    ]}
  ],
  "voice_summary": "",
  "competitors": [{"domain": "", "confidence": "high|medium|low"}]
}

Website: `
