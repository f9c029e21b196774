package infrastructure

import (
	"fmt"
	"strings"
	"sync"
)

// KnowledgeEntry is one curated question/answer pair about the profile the
// agent fronts.
type KnowledgeEntry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

var knowledgeMu sync.RWMutex

var profileKnowledge = []KnowledgeEntry{
	{
		Question: "Quem é Michael Lourenço?",
		Answer:   "Michael Lourenço é um desenvolvedor de soluções com mais de 5 anos de experiência, especializado em desenvolvimento backend, arquitetura de sistemas e tecnologias modernas como Node.js, Python, AWS e GCP.",
		Keywords: []string{"michael", "lourenço", "desenvolvedor", "experiência", "backend", "node.js", "python", "aws", "gcp"},
	},
	{
		Question: "Qual é o resumo profissional do Michael Lourenço?",
		Answer:   "Michael é Backend Senior, com experiência em desenvolvimento de software, APIs, microsserviços, arquitetura de sistemas distribuídos e implementação de soluções em nuvem, sempre focando em performance, escalabilidade e valor ao negócio.",
		Keywords: []string{"backend", "senior", "apis", "microsserviços", "arquitetura", "cloud", "performance", "escalabilidade"},
	},
	{
		Question: "Quais são as principais competências do Michael Lourenço?",
		Answer:   "As principais competências incluem desenvolvimento de APIs e microsserviços, arquitetura de sistemas distribuídos, implementação de soluções cloud e otimização de performance e escalabilidade.",
		Keywords: []string{"competências", "apis", "microsserviços", "arquitetura", "cloud", "performance", "escalabilidade"},
	},
	{
		Question: "Em quais áreas o Michael atua?",
		Answer:   "Michael atua em desenvolvimento backend e APIs, arquitetura e design de sistemas, implementação de infraestrutura cloud e mentoria e liderança técnica.",
		Keywords: []string{"áreas", "backend", "apis", "arquitetura", "cloud", "mentoria", "liderança"},
	},
	{
		Question: "Onde o Michael Lourenço trabalhou recentemente?",
		Answer:   "Ele trabalhou na Pixter como Desenvolvedor Backend Pleno, atuando em projetos de alta escala, arquiteturas serverless e microsserviços, além de migração de sistemas para cloud e desenvolvimento de interfaces mobile.",
		Keywords: []string{"pixter", "backend", "pleno", "projetos", "serverless", "microsserviços", "cloud", "mobile"},
	},
	{
		Question: "Quais tecnologias o Michael utiliza?",
		Answer:   "Michael utiliza Node.js, Python, AWS, GCP, React, Next.js, Unity, Vuforia, PHP, MySQL, JSON, JavaScript, HTML, CSS, entre outras tecnologias.",
		Keywords: []string{"tecnologias", "node.js", "python", "aws", "gcp", "react", "next.js", "unity", "vuforia", "php", "mysql", "javascript", "html", "css"},
	},
	{
		Question: "Quais são as formações acadêmicas do Michael Lourenço?",
		Answer:   "Michael possui graduação em Informática para a Gestão de Negócios (Fatec Itapetininga), especialização em Tecnologias para Aplicações Web (Unopar) e especialização em Informática Aplicada à Educação (IFSP Itapetininga).",
		Keywords: []string{"formação", "acadêmica", "graduação", "especialização", "fatec", "unopar", "ifsp", "informática", "gestão", "web", "educação"},
	},
	{
		Question: "Quais idiomas o Michael Lourenço fala?",
		Answer:   "Michael fala português (nativo) e inglês (intermediário avançado, leitura técnica, conversação e escrita de documentação).",
		Keywords: []string{"idiomas", "português", "inglês", "nativo", "intermediário", "avançado", "técnico"},
	},
	{
		Question: "Quais projetos de destaque estão no portfólio do Michael Lourenço?",
		Answer:   "Os projetos de destaque incluem ContiGO (jogo de lógica e cálculo), Realidade Aumentada para eventos (11 apps para a Click-Se), HoloSapiens AR (aplicativo de RA para educação científica) e Grancardápio (guia de cardápios, app fullstack para Android e iOS).",
		Keywords: []string{"projetos", "portfólio", "contigo", "realidade aumentada", "holosapiens", "grancardápio", "apps", "android", "ios"},
	},
	{
		Question: "Como entrar em contato com Michael Lourenço?",
		Answer:   "Para entrar em contato com Michael: Email: kontempler@gmail.com, WhatsApp: +55 15 92000-6629, GitHub: https://github.com/michael-lourenco, LinkedIn: https://www.linkedin.com/in/michael-lourenco/",
		Keywords: []string{"contato", "email", "whatsapp", "github", "linkedin", "kontempler"},
	},
}

// SearchKnowledge scores each entry against the query: keyword hit +2,
// question containment +3, answer containment +1. Top three by score.
func SearchKnowledge(query string) []KnowledgeEntry {
	queryLower := strings.ToLower(query)

	knowledgeMu.RLock()
	defer knowledgeMu.RUnlock()

	type scoredEntry struct {
		entry KnowledgeEntry
		score int
	}
	var results []scoredEntry
	for _, item := range profileKnowledge {
		score := 0
		for _, kw := range item.Keywords {
			if strings.Contains(queryLower, strings.ToLower(kw)) {
				score += 2
			}
		}
		qLower := strings.ToLower(item.Question)
		if strings.Contains(qLower, queryLower) || strings.Contains(queryLower, qLower) {
			score += 3
		}
		if strings.Contains(strings.ToLower(item.Answer), queryLower) {
			score++
		}
		if score > 0 {
			results = append(results, scoredEntry{entry: item, score: score})
		}
	}

	// Insertion sort by descending score; the list is tiny.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].score > results[j-1].score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	if len(results) > 3 {
		results = results[:3]
	}

	out := make([]KnowledgeEntry, 0, len(results))
	for _, r := range results {
		out = append(out, r.entry)
	}
	return out
}

// AddKnowledge appends a curated entry. Lives for the process lifetime only,
// like the rest of the in-memory state.
func AddKnowledge(entry KnowledgeEntry) error {
	if strings.TrimSpace(entry.Question) == "" || strings.TrimSpace(entry.Answer) == "" {
		return fmt.Errorf("knowledge entry needs a question and an answer")
	}

	knowledgeMu.Lock()
	profileKnowledge = append(profileKnowledge, entry)
	knowledgeMu.Unlock()
	return nil
}
