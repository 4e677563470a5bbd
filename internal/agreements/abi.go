package agreements

// ABI fragments for the agreement-side keeper contracts, trimmed to the
// methods and events the store uses.

const TemplateABI = `[
  {
    "constant": false,
    "inputs": [
      {"name": "serviceAgreementId", "type": "bytes32"},
      {"name": "did", "type": "bytes32"},
      {"name": "conditionIds", "type": "bytes32[]"},
      {"name": "timeLocks", "type": "uint256[]"},
      {"name": "timeOuts", "type": "uint256[]"},
      {"name": "accessConsumer", "type": "address"}
    ],
    "name": "createAgreement",
    "outputs": [{"name": "", "type": "uint256"}],
    "payable": false,
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "agreementId", "type": "bytes32"},
      {"indexed": true, "name": "did", "type": "bytes32"},
      {"indexed": false, "name": "accessConsumer", "type": "address"},
      {"indexed": false, "name": "accessProvider", "type": "address"},
      {"indexed": false, "name": "timeLocks", "type": "uint256[]"},
      {"indexed": false, "name": "timeOuts", "type": "uint256[]"}
    ],
    "name": "AgreementCreated",
    "type": "event"
  }
]`

const AgreementStoreManagerABI = `[
  {
    "constant": true,
    "inputs": [{"name": "agreementId", "type": "bytes32"}],
    "name": "getAgreement",
    "outputs": [
      {"name": "did", "type": "bytes32"},
      {"name": "didOwner", "type": "address"},
      {"name": "templateId", "type": "address"},
      {"name": "conditionIds", "type": "bytes32[]"},
      {"name": "accessConsumer", "type": "address"},
      {"name": "blockNumberUpdated", "type": "uint256"}
    ],
    "payable": false,
    "stateMutability": "view",
    "type": "function"
  }
]`

const ConditionStoreManagerABI = `[
  {
    "constant": true,
    "inputs": [{"name": "conditionId", "type": "bytes32"}],
    "name": "getCondition",
    "outputs": [
      {"name": "typeRef", "type": "address"},
      {"name": "state", "type": "uint8"},
      {"name": "timeLock", "type": "uint256"},
      {"name": "timeOut", "type": "uint256"}
    ],
    "payable": false,
    "stateMutability": "view",
    "type": "function"
  }
]`
