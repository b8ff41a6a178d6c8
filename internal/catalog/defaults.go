package catalog

// Soroswap testnet deployment used by the default swap mission.
const (
	SoroswapRouter = "CAG5LRYQ5JVEUI5TEID72EYOVX44TTUJT5BQR2J6J77FH65PCCFAJDDH"
	TokenXLM       = "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC"
	TokenUSDC      = "CAAV3AE3VK4ASVGRZAPXRPX6JCOFA6QQ7XJVSZ6EODLFWO3ZT3Z75ACX"
)

// DefaultVersion is the version of the built-in catalog.
const DefaultVersion = "1.0.0"

// DefaultMissions returns the built-in mission set.
func DefaultMissions() []Mission {
	return []Mission{
		{
			ID:          "m0",
			Title:       "Madrid Central Challenge",
			Description: "Visit the heart of Madrid and prove your location without revealing exact coordinates",
			Category:    "Location",
			Kind:        KindPhysical,
			Method:      MethodGeofence,
			Reward:      100,
			XP:          50,
			Difficulty:  DifficultyMedium,
			Geofence: &GeofenceParams{
				ZoneName:      "Madrid Central",
				LatMin:        40413000,
				LatMax:        40416000,
				LonMin:        -3708000,
				LonMax:        -3705000,
				MaxAgeSeconds: 300,
			},
		},
		{
			ID:          "m1",
			Title:       "Soroswap DeFi Pioneer",
			Description: "Execute a swap on Soroswap testnet and submit the transaction hash",
			Category:    "DeFi",
			Kind:        KindOnline,
			Method:      MethodSwapTransaction,
			Reward:      200,
			XP:          100,
			Difficulty:  DifficultyHard,
			Ledger: &LedgerParams{
				ContractID: SoroswapRouter,
				TokenIn:    TokenXLM,
				TokenOut:   TokenUSDC,
				MinAmount:  1000000,
			},
		},
		{
			ID:          "m2",
			Title:       "SDEX Trader",
			Description: "Place an order or a path payment on the Stellar decentralized exchange",
			Category:    "DeFi",
			Kind:        KindOnline,
			Method:      MethodDexTrade,
			Reward:      150,
			XP:          75,
			Difficulty:  DifficultyMedium,
			Ledger: &LedgerParams{
				TokenIn:   "XLM",
				TokenOut:  "USDC",
				MinAmount: 1000000,
			},
		},
		{
			ID:          "m3",
			Title:       "Community Voice",
			Description: "Cast a vote in a community governance round from your wallet",
			Category:    "Governance",
			Kind:        KindOnline,
			Method:      MethodGovernanceVote,
			Reward:      120,
			XP:          60,
			Difficulty:  DifficultyEasy,
			Ledger:      &LedgerParams{},
		},
		{
			ID:          "m4",
			Title:       "Quest Beacon",
			Description: "Send any payment to the quest address with the quest memo attached",
			Category:    "Exploration",
			Kind:        KindOnline,
			Method:      MethodMemoTransaction,
			Reward:      80,
			XP:          40,
			Difficulty:  DifficultyEasy,
			Memo: &MemoParams{
				QuestAddress: "GAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQTCQKRMFYYDENBWHA5DYPSABOV",
				RequiredMemo: "ZK-TRAILS-QUEST",
			},
		},
		{
			ID:          "m5",
			Title:       "Stellar Scholar",
			Description: "Answer questions about Stellar and Soroban",
			Category:    "Education",
			Kind:        KindOnline,
			Method:      MethodQuiz,
			Reward:      60,
			XP:          30,
			Difficulty:  DifficultyEasy,
			Quiz: &QuizParams{Questions: []Question{
				{
					ID:           "q1",
					Text:         "What is the native asset of the Stellar network?",
					Options:      []string{"ETH", "XLM", "SOL", "BTC"},
					CorrectIndex: 1,
				},
				{
					ID:           "q2",
					Text:         "Which language are Soroban smart contracts usually written in?",
					Options:      []string{"Solidity", "Move", "Rust", "Go"},
					CorrectIndex: 2,
				},
				{
					ID:           "q3",
					Text:         "How many stroops make one lumen?",
					Options:      []string{"1,000", "100,000", "1,000,000", "10,000,000"},
					CorrectIndex: 3,
				},
				{
					ID:           "q4",
					Text:         "What does a transaction memo do?",
					Options:      []string{"Attaches a note to a transaction", "Sets the fee", "Signs the transaction", "Locks an account"},
					CorrectIndex: 0,
				},
				{
					ID:           "q5",
					Text:         "Which prefix do Soroban contract addresses start with?",
					Options:      []string{"G", "S", "C", "M"},
					CorrectIndex: 2,
				},
			}},
		},
	}
}

// Default returns a catalog of the built-in missions.
func Default() *Catalog {
	c, err := New(DefaultVersion, DefaultMissions())
	if err != nil {
		panic("catalog: invalid built-in missions: " + err.Error())
	}
	return c
}
