package resolver

import "github.com/osint-pipeline/investigator/internal/models"

// blockingKeys returns the cheap keys that make a candidate comparable to
// another: two candidates are comparable iff they share at least one
// block (§4.9 step 1). Each candidate may fall into multiple blocks (a
// normalized username candidate with a known domain hint, for instance).
func blockingKeys(ne models.NormalizedEntity) []string {
	var keys []string

	if ne.NormalizedEmail != "" {
		keys = append(keys, "email:"+ne.NormalizedEmail)
	}
	if ne.E164Phone != "" {
		keys = append(keys, "phone:"+ne.E164Phone)
	}
	if ne.EntityType == models.EntityTypeDomain && ne.ComparisonKey != "" {
		keys = append(keys, "domain:"+ne.ComparisonKey)
	}
	if ne.Soundex != "" {
		keys = append(keys, "phonetic:"+ne.Soundex)
	}
	for _, variant := range ne.UsernameVariants {
		keys = append(keys, "username:"+variant)
	}
	if len(keys) == 0 && ne.ComparisonKey != "" {
		// Entities with no dedicated blocking key (location, generic
		// attributes) fall back to their own comparison key so they are
		// at least comparable to exact duplicates.
		keys = append(keys, "key:"+ne.ComparisonKey)
	}
	return keys
}

// buildBlocks groups candidate indices by block key.
func buildBlocks(candidates []models.NormalizedEntity) map[string][]int {
	blocks := make(map[string][]int)
	for i, c := range candidates {
		for _, key := range blockingKeys(c) {
			blocks[key] = append(blocks[key], i)
		}
	}
	return blocks
}

// comparablePairs returns every distinct pair of candidate indices that
// share at least one block, each pair reported once.
func comparablePairs(candidates []models.NormalizedEntity) [][2]int {
	blocks := buildBlocks(candidates)
	seen := make(map[[2]int]bool)
	var pairs [][2]int

	for _, members := range blocks {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i], members[j]
				if a > b {
					a, b = b, a
				}
				key := [2]int{a, b}
				if seen[key] {
					continue
				}
				seen[key] = true
				pairs = append(pairs, key)
			}
		}
	}
	return pairs
}
