package main

import (
	"math/rand/v2"
)

var examples = map[string]string{
	"Find Go missions around Lyon":       `nexus -g "missions freelance Go à Lyon, TJM > 500€"`,
	"Match offers against your resume":   `nexus -F cv.pdf -F portfolio.md "trouve des missions qui correspondent à mon profil"`,
	"Ask a follow-up on the last search": `nexus -C "lesquelles sont en full remote ?"`,
	"Pipe a job description in":          `cat offre.txt | nexus "résume cette offre et estime le TJM"`,
}

func randomExample() (string, string) {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.IntN(len(keys))]
	return desc, examples[desc]
}
