package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE executions (
				id VARCHAR(64) PRIMARY KEY,
				process_name VARCHAR(255) NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL CHECK (status IN ('ongoing', 'finished', 'cancelled')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_started_at ON executions(started_at);

			CREATE TABLE pointers (
				id VARCHAR(64) PRIMARY KEY,
				execution_id VARCHAR(64) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_pointers_execution_id ON pointers(execution_id);

			CREATE TABLE users (
				identifier VARCHAR(255) PRIMARY KEY,
				email VARCHAR(255) NOT NULL DEFAULT '',
				fullname VARCHAR(255) NOT NULL DEFAULT ''
			);
		`,
		2: `
			-- Assignments are removed together with their pointer.
			CREATE TABLE user_tasks (
				identifier VARCHAR(255) NOT NULL,
				pointer_id VARCHAR(64) NOT NULL,
				PRIMARY KEY (identifier, pointer_id)
			);

			CREATE INDEX idx_user_tasks_pointer_id ON user_tasks(pointer_id);
		`,
	}
}
