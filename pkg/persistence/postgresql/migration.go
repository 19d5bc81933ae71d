package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_definitions (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				entity_type VARCHAR(64) NOT NULL,
				condition JSONB NOT NULL,
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_definitions_entity_type ON workflow_definitions(entity_type);

			CREATE TABLE approval_instances (
				id UUID PRIMARY KEY,
				definition_id UUID NOT NULL,
				entity_type VARCHAR(64) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(32) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				current_step INT NOT NULL DEFAULT 0,
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- definition_id is a weak reference on purpose: deleting a
			-- definition must not cascade into the audit trail.
			CREATE INDEX idx_approval_instances_status ON approval_instances(status);
			CREATE INDEX idx_approval_instances_entity ON approval_instances(entity_type, entity_id);
			CREATE INDEX idx_approval_instances_created_at ON approval_instances(created_at);
		`,
	}
}
