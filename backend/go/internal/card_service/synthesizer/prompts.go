package synthesizer

const chunkSummaryPrompt = `Summarize the following content thoroughly in a structured manner:

%s`

const combinedSummaryPrompt = `You are provided with a collection of documents that together form a single comprehensive document.
A researcher needs a summary that is informative, clear, and structured in a visually engaging format using emojis and headings. Generate a rich, self-contained summary that does not require the reader to refer back to the original documents.

**Required Output Format:**

**Summary**
Write a concise 1-2 sentence overview that explains what the document is about and what the reader will learn.

**Highlights**
List the most important features, concepts, or components as bullet points with relevant emojis.
Each bullet is 1-2 sentences written in a simple, clear style.

**Key Insights**
Expand on the core ideas or methods introduced in the content.
Each bullet starts with an emoji and a bold heading, followed by 2-4 explanatory sentences.
Explain any processes, frameworks, or systems that are described. Use examples where they help.

**Guidelines:**
- Use emojis to structure the content visually.
- Keep a professional but friendly, educational tone.
- Avoid promotional language.
- Do not add a preamble such as "Here's the summary". Present the sections directly.

Summarize the following document in this format:

%s`

const titlePrompt = `Generate a concise and engaging title based on the following summary.
Give only a single title in return.

%s

### Title Guidelines:
1. Short & Catchy: keep the title concise.
2. Reflect the Summary: the title must represent the main idea.
3. Avoid Clickbait: the title should be informative.
4. Max 6 Words.`

const tagsPrompt = `Generate tags for the following content:

%s

### Tagging Guidelines:
1. Provide tags that accurately describe the content.
2. Include only major topics and keywords.
3. Avoid duplicates.
4. Only give the top %d tags.
5. Return the tags as a comma-separated list (e.g., AI, Machine Learning, Deep Learning).`

const categoryPrompt = `Categorize the following content into exactly one of these categories:
%s.

%s

### Category Guidelines:
1. Choose only one category from the list above.
2. Pick the category that best describes the content.
3. Return only the category name, spelled exactly as listed.`

const topicPrompt = `Generate a two to three word title for the overall topic of these tags:
%s

Guidelines:
1. Give a title for the overall topic of the tags.
2. Do not go beyond 3 words.
3. Return only the title.`

const qnaPrompt = `Write %d question and answer pairs that test understanding of the following summary.

%s

Return only a JSON array, without markdown fences, in this shape:
[{"question": "...", "answer": "..."}]`
