// Package topics holds the curated pool of story ideas for autopilot runs.
package topics

import (
	"math/rand"
	"sync"

	"hindi-reels-pipeline/types"
)

// pool is hand-curated: every entry is a verified historical event with a
// clear single dramatic turn, suited to a 40-second telling.
var pool = []types.Topic{
	{Topic: "Maharana Pratap's charge at Haldighati", Era: "Mughal era, 1576", Mood: types.MoodDramatic, Hook: "क्या एक घोड़ा इतिहास बदल सकता है?", Lens: types.LensTurningPoint},
	{Topic: "Rani Lakshmibai's escape from Jhansi fort", Era: "1857 uprising", Mood: types.MoodAdventure, Hook: "रात के अंधेरे में एक रानी, पीठ पर बेटा, सामने मौत।", Lens: types.LensFearCourage},
	{Topic: "Mir Jafar's betrayal at the Battle of Plassey", Era: "Bengal, 1757", Mood: types.MoodSuspense, Hook: "एक दस्तख़त ने दो सौ साल की ग़ुलामी लिख दी।", Lens: types.LensBetrayal},
	{Topic: "Shivaji's escape from Aurangzeb's Agra prison", Era: "Mughal era, 1666", Mood: types.MoodSuspense, Hook: "मिठाई के टोकरे में छिपा था मराठा साम्राज्य का भविष्य।", Lens: types.LensTurningPoint},
	{Topic: "Ashoka after the battle of Kalinga", Era: "Maurya empire, 261 BCE", Mood: types.MoodEmotional, Hook: "एक लाख लाशों के बीच खड़ा सम्राट रो पड़ा।", Lens: types.LensPower},
	{Topic: "Prithviraj Chauhan and the second battle of Tarain", Era: "1192", Mood: types.MoodDramatic, Hook: "जिसे सोलह बार माफ़ किया, उसी ने सब छीन लिया।", Lens: types.LensBetrayal},
	{Topic: "Bhagat Singh's decision to stay and face trial", Era: "British Raj, 1929", Mood: types.MoodInspiring, Hook: "भाग सकते थे, लेकिन रुक गए। क्यों?", Lens: types.LensTurningPoint},
	{Topic: "The sack of Vijayanagara after Talikota", Era: "1565", Mood: types.MoodEmotional, Hook: "दुनिया का सबसे अमीर शहर, छह महीने में खंडहर।", Lens: types.LensUnderrated},
	{Topic: "Hemu's rise and fall at Panipat", Era: "1556", Mood: types.MoodDramatic, Hook: "एक तीर ने हिंदुस्तान का ताज बदल दिया।", Lens: types.LensTurningPoint},
	{Topic: "Rana Sanga's eighty wounds", Era: "Rajputana, 1527", Mood: types.MoodInspiring, Hook: "अस्सी ज़ख़्म, एक आंख, एक हाथ, फिर भी मैदान में।", Lens: types.LensFearCourage},
	{Topic: "Jallianwala Bagh and Udham Singh's twenty-one year wait", Era: "1919-1940", Mood: types.MoodSuspense, Hook: "इक्कीस साल तक एक नाम याद रखा, फिर लंदन जाकर हिसाब किया।", Lens: types.LensUnderrated},
	{Topic: "Chandragupta Maurya and Chanakya's revenge", Era: "321 BCE", Mood: types.MoodDramatic, Hook: "एक अपमान ने साम्राज्य गिरा दिया, दूसरा खड़ा कर दिया।", Lens: types.LensPower},
	{Topic: "Tanaji Malusare at Sinhagad", Era: "Maratha empire, 1670", Mood: types.MoodDramatic, Hook: "शादी छोड़कर किले पर चढ़ा, और लौटा नहीं।", Lens: types.LensFearCourage},
	{Topic: "The last stand of Porus against Alexander", Era: "326 BCE", Mood: types.MoodInspiring, Hook: "हारकर भी जीतने वाला राजा।", Lens: types.LensPower},
	{Topic: "Razia Sultan, the empire that rejected its best ruler", Era: "Delhi Sultanate, 1236", Mood: types.MoodEmotional, Hook: "काबिलियत थी, सिर्फ़ क़सूर एक था।", Lens: types.LensUnderrated},
}

// Pool hands out topics, avoiding repeats until every entry has been used
// once, then starting over.
type Pool struct {
	mu   sync.Mutex
	used map[string]bool
}

// NewPool creates a Pool over the curated entries.
func NewPool() *Pool {
	return &Pool{used: make(map[string]bool)}
}

// Pick returns a random not-yet-used topic.
func (p *Pool) Pick() types.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fresh []types.Topic
	for _, t := range pool {
		if !p.used[t.Topic] {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		p.used = make(map[string]bool)
		fresh = pool
	}
	chosen := fresh[rand.Intn(len(fresh))]
	p.used[chosen.Topic] = true
	return chosen
}

// All returns the whole pool.
func (p *Pool) All() []types.Topic {
	out := make([]types.Topic, len(pool))
	copy(out, pool)
	return out
}
