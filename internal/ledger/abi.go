package ledger

// Contract ABI fragments for the two deployed contracts. Only the methods
// and events the service actually calls are declared; the deployed contracts
// carry more surface than this.

const organChainABI = `[
	{"type":"function","name":"registerDonorProfileOnChain","stateMutability":"nonpayable",
	 "inputs":[{"name":"donorDid","type":"string"},{"name":"donorAddress","type":"address"}],
	 "outputs":[]},
	{"type":"function","name":"registerOrgan","stateMutability":"nonpayable",
	 "inputs":[{"name":"donorDid","type":"string"},{"name":"organType","type":"uint8"},{"name":"hospitalDid","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"updateOrganStatusByDID","stateMutability":"nonpayable",
	 "inputs":[{"name":"journeyDid","type":"string"},{"name":"status","type":"uint8"},{"name":"notes","type":"string"},{"name":"newHolderDid","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"recordTransplantOutcome","stateMutability":"nonpayable",
	 "inputs":[{"name":"journeyDid","type":"string"},{"name":"success","type":"bool"},{"name":"anonymizedStats","type":"string"},{"name":"notes","type":"string"}],
	 "outputs":[]},
	{"type":"event","name":"OrganRegisteredForDID","anonymous":false,
	 "inputs":[{"name":"organId","type":"uint256","indexed":false},{"name":"donorDid","type":"string","indexed":false},{"name":"organType","type":"uint8","indexed":false}]}
]`

const hopeTokenABI = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"burnForRedemption","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const organRegisteredEvent = "OrganRegisteredForDID"
