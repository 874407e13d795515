package contract

import "math/big"

// ChatBotABI is the ABI of the ChatBot contract. Only the members the
// client uses are listed.
const ChatBotABI = `[
	{
		"inputs": [],
		"name": "domain",
		"outputs": [{"internalType": "string", "name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "string", "name": "siweMsg", "type": "string"},
			{
				"components": [
					{"internalType": "bytes32", "name": "r", "type": "bytes32"},
					{"internalType": "bytes32", "name": "s", "type": "bytes32"},
					{"internalType": "uint256", "name": "v", "type": "uint256"}
				],
				"internalType": "struct SignatureRSV",
				"name": "sig",
				"type": "tuple"
			}
		],
		"name": "login",
		"outputs": [{"internalType": "bytes", "name": "", "type": "bytes"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "bytes", "name": "authToken", "type": "bytes"},
			{"internalType": "address", "name": "addr", "type": "address"}
		],
		"name": "getPrompts",
		"outputs": [{"internalType": "string[]", "name": "", "type": "string[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "bytes", "name": "authToken", "type": "bytes"},
			{"internalType": "address", "name": "addr", "type": "address"}
		],
		"name": "getAnswers",
		"outputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "promptId", "type": "uint256"},
					{"internalType": "string", "name": "answer", "type": "string"}
				],
				"internalType": "struct ChatBot.Answer[]",
				"name": "",
				"type": "tuple[]"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "string", "name": "prompt", "type": "string"}],
		"name": "appendPrompt",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "clearPrompt",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [{"indexed": true, "internalType": "address", "name": "sender", "type": "address"}],
		"name": "AnswerSubmitted",
		"type": "event"
	}
]`

// answerTuple mirrors ChatBot.Answer for ABI decoding.
type answerTuple struct {
	PromptId *big.Int // field names follow the ABI
	Answer   string
}
