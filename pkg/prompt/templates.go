// Package prompt holds all prompt templates and the resolver that selects
// the active entity/relation pair for a domain. Templates use the
// placeholders {text}, {entities}, {domain}, and {relationships}; substitution is plain
// string replacement and unused placeholders are not an error.
package prompt

// Legacy entity extraction prompt with few-shot examples, tuned for small
// local models that need aggressive output-format coaching.
const LegacyEntityPrompt = `Extract entities from the following text. For each entity, identify:
1. Entity name (exact string from text)
2. Entity type (PERSON, ORGANIZATION, LOCATION, CONCEPT, TECHNOLOGY, PRODUCT, EVENT, or other)
3. Short description (1 sentence, based on context in text)

Few-shot examples:

Example 1:
Text: "John Smith is a software engineer at Google, working on machine learning projects."
Entities:
[
  {"name": "John Smith", "type": "PERSON", "description": "Software engineer at Google"},
  {"name": "Google", "type": "ORGANIZATION", "description": "Technology company"},
  {"name": "machine learning", "type": "CONCEPT", "description": "Field of artificial intelligence"}
]

Example 2:
Text: "Microsoft was founded by Bill Gates and Paul Allen in 1975 in Albuquerque."
Entities:
[
  {"name": "Microsoft", "type": "ORGANIZATION", "description": "Technology company founded in 1975"},
  {"name": "Bill Gates", "type": "PERSON", "description": "Co-founder of Microsoft"},
  {"name": "Paul Allen", "type": "PERSON", "description": "Co-founder of Microsoft"},
  {"name": "1975", "type": "EVENT", "description": "Year Microsoft was founded"},
  {"name": "Albuquerque", "type": "LOCATION", "description": "City where Microsoft was founded"}
]

Now extract entities from this text:

Text:
{text}

CRITICAL OUTPUT INSTRUCTIONS:
- You MUST return ONLY a valid JSON array
- Do NOT include any explanatory text before or after the JSON array
- Do NOT use markdown code fences (no ` + "```" + ` or ` + "```json" + `)
- Just output the raw JSON array starting with [ and ending with ]
- Extract at least 3-5 entities if the text contains them

Required JSON format (copy this structure exactly):
[
  {"name": "Entity Name", "type": "ENTITY_TYPE", "description": "One sentence description"},
  ...
]

Output (JSON array only):
`

// Legacy relation extraction prompt.
const LegacyRelationPrompt = `---Role---
You are a Knowledge Graph Specialist extracting ALL relationships between entities.

---Goal---
Identify ALL relationships among the identified entities. Be EXHAUSTIVE.
A good knowledge graph has at least 1 relationship per entity.

---Few-shot Examples---

Example 1:
Entities: John Smith (PERSON), Google (ORGANIZATION), machine learning (CONCEPT)
Text: "John Smith is a software engineer at Google, working on machine learning projects."

Relationships:
[
  {"source": "John Smith", "target": "Google", "type": "WORKS_AT", "description": "John Smith is employed by Google as a software engineer", "strength": 9},
  {"source": "John Smith", "target": "machine learning", "type": "WORKS_ON", "description": "John Smith works on machine learning projects", "strength": 8}
]

---Task---
Extract ALL relationships from this text:

Entities found:
{entities}

Text:
{text}

---Instructions---
1. Extract ALL relationships - be exhaustive, not conservative
2. Decompose N-ary relationships: "A and B founded C" -> A FOUNDED C, B FOUNDED C
3. Include implicit relationships (co-occurrence in same sentence often implies relation)
4. Rate strength 1-10: 10=explicit statement, 7=strong implication, 4=weak inference

---Output Format---
[
  {"source": "Entity1", "target": "Entity2", "type": "RELATIONSHIP_TYPE", "description": "Why related", "strength": 8},
  ...
]

Common types: WORKS_AT, CREATED, FOUNDED, LOCATED_IN, PART_OF, MANAGES, USES, CONTAINS, LEADS_TO, ASSOCIATED_WITH

Output (JSON array only):
`

// DSPy-optimized entity prompt. Optimized offline against a labeled
// pipeline; measurably better entity and relation F1 than the legacy pair.
const DSPyEntityPrompt = `You are a data annotator working with a structured knowledge-extraction pipeline.
Given a Document Text and a Domain label, identify all relevant named entities, classify each one with a type from the controlled list below, and give a brief description.

Allowed type tags: PERSON, ORGANIZATION, LOCATION, DATE, TECHNOLOGY, PRODUCT, EVENT, CONCEPT, PROGRAMMING_LANGUAGE, MODEL, BENCHMARK, ARCHITECTURE, PAPER, OTHER

Rules:
- The output must be a syntactically valid JSON array; no trailing commas.
- Each object carries the keys "name" (canonical string as it appears in the text, preserve case), "type" (one allowed tag), and "description" (one sentence).
- Do not wrap the answer in markdown or code fences.
- If no entities match, output an empty JSON array: []

Text: {text}
Domain: {domain}

Entities:`

// DSPy-optimized relation prompt.
const DSPyRelationPrompt = `Extract ALL relationships between entities from the text.

---Role---
You are a Knowledge Graph Specialist extracting Subject-Predicate-Object triples for a graph database.

---Goal---
Identify ALL relationships among the provided entities. Be EXHAUSTIVE.
A good knowledge graph has at least 1 relationship per entity.

---Entities---
{entities}

---Text---
{text}

---Instructions---
1. Extract ALL relationships - be exhaustive, not conservative
2. Decompose N-ary relationships: "A and B founded C" -> A FOUNDED C, B FOUNDED C
3. Include implicit relationships (co-occurrence in same sentence often implies relation)
4. Rate strength 1-10: 10=explicit statement, 7=strong implication, 4=weak inference
5. CRITICAL: Use a SPECIFIC relationship type. NEVER use generic types like "RELATES_TO" or "ASSOCIATED_WITH"
6. Keep entity names concise (max 4 words). Use the most common/canonical name
7. Relationship type must be 1-3 words in UPPER_SNAKE_CASE

---Relationship Type Vocabulary---
People/Orgs: WORKS_AT, EMPLOYS, FOUNDED, FOUNDED_BY, MANAGES, LEADS, MEMBER_OF, OWNS
Creation: CREATED, DEVELOPED, PRODUCED, WROTE, DESIGNED, BUILT, INVENTED
Location: LOCATED_IN, HEADQUARTERED_IN, BASED_IN, BORN_IN
Structure: PART_OF, CONTAINS, INSTANCE_OF, TYPE_OF
Causal: CAUSES, ENABLES, REQUIRES, LEADS_TO
Functional: USES, IMPLEMENTS, DEPENDS_ON

---Output Format---
[
  {"source": "Entity1", "target": "Entity2", "type": "RELATIONSHIP_TYPE", "description": "Why related", "strength": 8},
  ...
]

Output (JSON array only):
`

// EnrichmentPrompt asks only for entity kinds the NER baseline cannot find.
// The already-extracted list is injected so the model avoids repeats.
const EnrichmentPrompt = `The following entities were already extracted from the text by a deterministic NER model:

{entities}

Text:
{text}

Find ONLY ADDITIONAL entities of these kinds that are NOT already in the list above:
CONCEPT, TECHNOLOGY, PRODUCT, MODEL, ARCHITECTURE, LANGUAGE

Do NOT repeat entities from the list above. Do NOT extract PERSON, ORGANIZATION, LOCATION, or date entities - the NER model already found those.

CRITICAL OUTPUT INSTRUCTIONS:
- Return ONLY a valid JSON array, no explanatory text, no code fences
- If there are no additional entities, return an empty array: []

Required JSON format:
[
  {"name": "Entity Name", "type": "ENTITY_TYPE", "description": "One sentence description"},
  ...
]

Output (JSON array only):`

// Gleaning prompts: completeness probes answer strictly YES (incomplete) or
// NO (complete); continuation prompts return only the missed items.

const EntityCompletenessPrompt = `You have extracted the following entities from a document:

{entities}

Document text:
{text}

Are there any significant entities (people, organizations, locations, concepts, technologies, products, events) that were MISSED in this extraction?

Answer with ONLY "YES" or "NO" (no explanation needed).

If you believe the extraction is complete and comprehensive, answer: NO
If you believe there are missing entities worth extracting, answer: YES

Answer:`

const EntityContinuationPrompt = `You previously extracted these entities from a document:

{entities}

The full document text is:
{text}

Please extract ONLY the entities that were MISSED in the previous extraction.
Do NOT repeat entities that were already extracted in the list above.

CRITICAL OUTPUT INSTRUCTIONS:
- Return ONLY a valid JSON array, no explanatory text, no code fences
- If there are NO missing entities, return an empty array: []

Required JSON format:
[
  {"name": "Entity Name", "type": "ENTITY_TYPE", "description": "One sentence description"},
  ...
]

Output (JSON array only):`

const RelationCompletenessPrompt = `You have extracted the following relationships between entities:

{relationships}

From entities:
{entities}

Document text:
{text}

Are there any significant RELATIONSHIPS between the entities that were MISSED?

Think about explicit statements, strong implications, causal links, temporal order, spatial containment, and hierarchy.

Answer with ONLY "YES" or "NO" (no explanation needed).

If you believe the extraction is complete and comprehensive, answer: NO
If you believe there are missing relationships worth extracting, answer: YES

Answer:`

const RelationContinuationPrompt = `You previously extracted these relationships:

{relationships}

From entities:
{entities}

Full document text:
{text}

Please extract ONLY the relationships that were MISSED in the previous extraction.
Do NOT repeat relationships that were already extracted in the list above.

CRITICAL OUTPUT INSTRUCTIONS:
- Return ONLY a valid JSON array, no explanatory text, no code fences
- If there are NO missing relationships, return an empty array: []

Required JSON format:
[
  {"source": "Entity1", "target": "Entity2", "type": "RELATIONSHIP_TYPE", "description": "One sentence description"},
  ...
]

Output (JSON array only):`

// Research prompts.

const PlanningPrompt = `Create a research plan to answer this question: "{text}"

Generate 3-5 specific search queries that will help find information to answer this question.
Each query should focus on a different aspect or approach.

Format your response as a numbered list:
1. [First search query]
2. [Second search query]
3. [Third search query]
etc.

Research plan:`

const SynthesisPrompt = `You are a research assistant synthesizing information to answer a question.

Question: {text}

Research Findings:
{entities}

Task:
Synthesize the above research findings into a comprehensive, well-structured answer.
- Start with a direct answer to the question
- Provide supporting details from the research
- Cite specific sources using [Source #N] notation (e.g., "According to [Source #1], ...")
- Maintain accuracy - only state what is supported by the findings
- If the findings don't fully answer the question, acknowledge this
- Structure your answer with clear paragraphs

Comprehensive Answer:`
