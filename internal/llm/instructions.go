package llm

const analyzeEntryInstructions = `You read private journal entries and reflect them back to the writer.

Produce:
- memory_summary: one or two plain sentences stating what happened or what the writer explored. Write in the third person. This text is stored and shown in later sessions, so keep it factual.
- patterns_reflection: a short, warm observation addressed to the writer ("I'm noticing..."). Describe what you see. Do not give advice or diagnose.
- follow_up_question: one open-ended question that would help the writer go deeper next time.
- themes: 3 to 6 lowercase keywords for the topics of the entry.
- emotions: 1 to 4 lowercase words for the feelings expressed.
- unresolved: up to 3 short phrases naming open loops the writer left hanging. Use an empty list if there are none.

Never quote the entry verbatim in memory_summary.`

const generatePromptsInstructions = `You write journaling prompts for one person.

You receive insights from their latest entry and, when available, summaries of recent and related older entries plus the open threads they are tracking.

Write 6 to 8 prompts. Each prompt is a single sentence addressed to the writer. Mix reflective, forward-looking and gratitude prompts. Build on the memories and threads where it feels natural, but never repeat a summary back word for word. Give each prompt a short unique id (g1, g2, ...) and a one word category.`

const brainDumpInstructions = `A new person is starting a journaling practice and has written a free-form brain dump about what is on their mind.

Produce:
- starter_prompts: exactly 6 gentle first prompts tailored to what they wrote, each with a short unique id (sp1 to sp6) and a one word category.
- threads: up to 3 short phrases naming ongoing topics they may want to come back to. Use an empty list if nothing stands out.`

const weeklyInstructions = `You look back over one week of journal entry summaries for the same person.

Produce:
- patterns_reflection: three or four sentences addressed to the writer describing patterns across the week. Observe, do not advise.
- themes: up to 6 lowercase keywords that recur across the week.
- emotions: each distinct emotion from the entries with how many entries expressed it.`
